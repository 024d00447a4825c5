package core

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"github.com/agenthands/snapdiff/internal/core/common"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/core/resolve"
	"github.com/agenthands/snapdiff/internal/normalize"
	"github.com/agenthands/snapdiff/internal/observability"
)

// ValidateContext checks whether the given views belong to the same document and
// share a view type. It is a pre-flight gate and captures no snapshots.
func (e *Engine) ValidateContext(ctx context.Context, req model.ContextRequest) model.ContextResponse {
	ctx, span := observability.Tracer.Start(ctx, "Engine.ValidateContext",
		trace.WithAttributes(attribute.Int("snapdiff.projects", len(req.Projects))))
	defer span.End()

	resp := model.ContextResponse{Items: []model.ContextItem{}, Issues: []model.Issue{}}
	if code, msg := checkCount(len(req.Projects)); code != "" {
		resp.Code, resp.Message = code, msg
		e.Metrics.ObserveIssue(code)
		return resp
	}

	for i, p := range req.Projects {
		item, issues := e.contextItem(ctx, i, p, req.ResolveByName)
		resp.Issues = append(resp.Issues, issues...)
		if item != nil {
			resp.Items = append(resp.Items, *item)
		}
	}
	resp.Count = len(resp.Items)
	resp.Checks = contextChecks(resp.Items)

	var mismatch []model.Issue
	if req.RequireSameProject && !resp.Checks.AllSameProject {
		mismatch = append(mismatch, *model.NewIssue(model.CodeProjectMismatch, docKeys(resp.Items), "projects belong to different documents"))
	}
	if req.RequireSameViewType && !resp.Checks.AllSameViewType {
		mismatch = append(mismatch, *model.NewIssue(model.CodeViewTypeMismatch, viewTypes(resp.Items), "views have different view types"))
	}
	resp.Issues = append(resp.Issues, mismatch...)

	switch {
	case resp.Count < MinProjects:
		resp.Code = model.CodeNotEnough
		resp.Message = fmt.Sprintf("%d of %d projects resolved, need at least %d", resp.Count, len(req.Projects), MinProjects)
	case len(mismatch) > 0:
		resp.Code, resp.Message = mismatch[0].Code, mismatch[0].Message
	default:
		resp.OK = true
	}

	for _, is := range resp.Issues {
		e.Metrics.ObserveIssue(is.Code)
	}
	e.logger().Info("context validated", "ok", resp.OK, "count", resp.Count,
		"same_project", resp.Checks.AllSameProject, "same_view_type", resp.Checks.AllSameViewType)
	return resp
}

func (e *Engine) contextItem(ctx context.Context, i int, p model.ContextProject, byName bool) (*model.ContextItem, []model.Issue) {
	issueCtx := map[string]interface{}{"index": i, "endpoint": p.Endpoint}
	if strings.TrimSpace(p.Endpoint) == "" {
		return nil, []model.Issue{*model.NewIssue(model.CodeBadSource, issueCtx, "endpoint is required")}
	}

	item := &model.ContextItem{Index: i, Endpoint: resolve.NormalizeEndpoint(p.Endpoint), ViewID: p.ViewID, ViewName: p.ViewName}
	if p.ViewID != "" || p.ViewName != "" {
		view, issue := e.Resolver.ResolveView(ctx, p.Endpoint, p.ViewID, p.ViewName, byName)
		if issue != nil {
			if issue.Context == nil {
				issue.Context = map[string]interface{}{}
			}
			issue.Context["index"] = i
			return nil, []model.Issue{*issue}
		}
		item.Endpoint, item.ViewID, item.ViewName, item.ViewType = view.Endpoint, view.ViewID, view.ViewName, view.ViewType
	}

	info, err := e.Resolver.Info(ctx, item.Endpoint, e.Config.Methods.ProjectInfo, nil)
	if err != nil {
		return nil, []model.Issue{*resolve.RemoteIssue(err, issueCtx)}
	}
	if info["ok"] == false {
		return nil, []model.Issue{*model.NewIssue(model.CodeResolveError, issueCtx,
			"project info unavailable: %s", common.String(info, "msg", "message", "error"))}
	}
	doc := documentOf(info)
	item.DocGUID = common.String(doc, "docGuid", "documentId", "uniqueId")
	item.DocTitle = common.String(doc, "title", "docTitle", "name")
	item.DocKey = documentKey(item)

	var issues []model.Issue
	if item.ViewID != "" {
		vinfo, err := e.Resolver.Info(ctx, item.Endpoint, e.Config.Methods.ViewInfo, map[string]interface{}{"viewId": item.ViewID})
		switch {
		case err != nil:
			issues = append(issues, *resolve.RemoteIssue(err, issueCtx))
		case vinfo["ok"] == false:
			issues = append(issues, *model.NewIssue(model.CodeViewNotFound, issueCtx,
				"view %s info unavailable: %s", item.ViewID, common.String(vinfo, "msg", "message", "error")))
		default:
			view := documentOf(vinfo)
			if vt := common.String(view, "viewType", "type"); vt != "" {
				item.ViewType = vt
			}
			if item.ViewName == "" {
				item.ViewName = common.String(view, "name", "viewName")
			}
		}
	}
	return item, issues
}

// documentOf looks through a project/document/view wrapper when present.
func documentOf(info map[string]interface{}) map[string]interface{} {
	for _, k := range []string{"document", "project", "view"} {
		if m, ok := common.AsObject(info[k]); ok {
			return m
		}
	}
	return info
}

// documentKey prefers the stable document id and falls back to the normalized title.
func documentKey(item *model.ContextItem) string {
	if item.DocGUID != "" {
		return "guid:" + item.DocGUID
	}
	if t := normalize.Name(item.DocTitle); t != "" {
		return "title:" + t
	}
	return "endpoint:" + item.Endpoint
}

func contextChecks(items []model.ContextItem) model.ContextChecks {
	checks := model.ContextChecks{AllSameProject: len(items) > 0, AllSameViewType: len(items) > 0}
	for _, it := range items[min(1, len(items)):] {
		if it.DocKey != items[0].DocKey {
			checks.AllSameProject = false
		}
		if it.ViewType != items[0].ViewType {
			checks.AllSameViewType = false
		}
	}
	return checks
}

func docKeys(items []model.ContextItem) map[string]interface{} {
	keys := make([]interface{}, len(items))
	for i, it := range items {
		keys[i] = it.DocKey
	}
	return map[string]interface{}{"docKeys": keys}
}

func viewTypes(items []model.ContextItem) map[string]interface{} {
	types := make([]interface{}, len(items))
	for i, it := range items {
		types[i] = it.ViewType
	}
	return map[string]interface{}{"viewTypes": types}
}
