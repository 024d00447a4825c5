package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/agenthands/snapdiff/internal/core/model"
)

func renderCompare(w io.Writer, resp model.CompareResponse, format string) error {
	if format == "json" {
		return renderJSON(w, resp)
	}

	if resp.Baseline != nil {
		_, _ = fmt.Fprintf(w, "Baseline: #%d %s (%d records)\n", resp.Baseline.Index, projectLabel(*resp.Baseline), resp.Baseline.RecordCount)
	}
	if len(resp.Items) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "Compared", "Records", "Modified", "Left only", "Right only", "Name changed", "Ratio", "Source"})
		for _, it := range resp.Items {
			t.AppendRow(table.Row{
				it.ComparedProject.Index,
				projectLabel(it.ComparedProject),
				it.ComparedProject.RecordCount,
				it.ModifiedCount,
				it.LeftOnlyCount,
				it.RightOnlyCount,
				it.NameChangedCount,
				fmt.Sprintf("%.3f", it.Ratio),
				it.DiffSource,
			})
		}
		t.Render()
	}
	renderIssues(w, resp.Issues)
	if !resp.OK {
		_, _ = fmt.Fprintf(w, "FAILED %s: %s\n", resp.Code, resp.Message)
	}
	return nil
}

func renderContext(w io.Writer, resp model.ContextResponse, format string) error {
	if format == "json" {
		return renderJSON(w, resp)
	}

	if len(resp.Items) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "Endpoint", "Document", "View", "View type"})
		for _, it := range resp.Items {
			doc := it.DocTitle
			if doc == "" {
				doc = it.DocKey
			}
			t.AppendRow(table.Row{it.Index, it.Endpoint, doc, it.ViewName, it.ViewType})
		}
		t.Render()
	}
	_, _ = fmt.Fprintf(w, "Same project: %t  Same view type: %t\n", resp.Checks.AllSameProject, resp.Checks.AllSameViewType)
	renderIssues(w, resp.Issues)
	if !resp.OK {
		_, _ = fmt.Fprintf(w, "FAILED %s: %s\n", resp.Code, resp.Message)
	}
	return nil
}

func renderIssues(w io.Writer, issues []model.Issue) {
	if len(issues) == 0 {
		return
	}
	t := newTable(w)
	t.SetTitle("Issues")
	t.AppendHeader(table.Row{"Code", "Message"})
	for _, is := range issues {
		t.AppendRow(table.Row{is.Code, is.Message})
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func projectLabel(p model.ProjectRef) string {
	switch p.SourceKind {
	case model.SourceRemote:
		return fmt.Sprintf("%s view %s %s", p.Endpoint, p.ViewID, p.ViewName)
	case model.SourceGraph:
		return "graph:" + p.Snapshot
	}
	return p.Path
}
