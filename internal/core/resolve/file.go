package resolve

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"github.com/agenthands/snapdiff/internal/core/model"
)

const maxLineBytes = 16 << 20

func (r *Resolver) resolveFile(d model.ProjectDescriptor) (*model.Resolved, *model.Issue) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, fileIssue(d.Path, "failed to read file: %v", err)
	}

	doc, err := decodeDocument(d.Path, data)
	if err != nil {
		return nil, fileIssue(d.Path, "failed to parse file: %v", err)
	}

	return fileResolved(d, model.SourceFile, documentRecords(doc)), nil
}

func (r *Resolver) resolveLines(d model.ProjectDescriptor) (*model.Resolved, *model.Issue) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fileIssue(d.Path, "failed to open file: %v", err)
	}
	defer f.Close()

	records, dropped, err := readLines(f)
	if err != nil {
		return nil, fileIssue(d.Path, "failed to read file: %v", err)
	}
	if dropped > 0 {
		r.logger().Debug("dropped malformed lines", "path", d.Path, "dropped", dropped)
	}
	return fileResolved(d, model.SourceLineDelimitedFile, records), nil
}

func fileResolved(d model.ProjectDescriptor, kind model.SourceKind, records []model.Record) *model.Resolved {
	return &model.Resolved{
		Descriptor: d,
		View:       model.ResolvedView{ViewName: filepath.Base(d.Path)},
		Snapshot: model.Snapshot{
			OK:      true,
			Records: records,
			Meta:    model.SnapshotMeta{SourceKind: kind, Path: d.Path},
		},
	}
}

// decodeDocument parses YAML for .yaml/.yml paths and JSON otherwise.
func decodeDocument(path string, data []byte) (interface{}, error) {
	var doc interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return plainYAML(doc), nil
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// documentRecords returns the list itself, else the elements field, else the
// document wrapped in a one-record list.
func documentRecords(doc interface{}) []model.Record {
	switch t := doc.(type) {
	case []interface{}:
		return recordsOf(t)
	case map[string]interface{}:
		if elements, ok := t["elements"]; ok {
			return recordsOf(elements)
		}
		return []model.Record{t}
	}
	return []model.Record{}
}

// readLines parses one object per non-blank line and counts the lines it drops.
func readLines(f *os.File) ([]model.Record, int, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	records := []model.Record{}
	dropped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal(line, &rec); err != nil || rec == nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, scanner.Err()
}

// plainYAML rewrites non-string-keyed mappings so decoded YAML has the same
// shape as decoded JSON.
func plainYAML(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = plainYAML(val)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = plainYAML(val)
		}
		return out
	case []interface{}:
		for i, val := range t {
			t[i] = plainYAML(val)
		}
		return t
	}
	return v
}
