// Package resolve turns loose project descriptors into concrete views and the
// record snapshots taken from them.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core/common"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/driver"
	"github.com/agenthands/snapdiff/internal/jobclient"
	"github.com/agenthands/snapdiff/internal/normalize"
)

const loopback = "127.0.0.1"

type Resolver struct {
	Remote jobclient.Caller
	// Local serves endpoints that address this process. Nil disables the bypass.
	Local     jobclient.Caller
	SelfPort  int
	SelfHosts []string
	// Graph backs the graph source kind. Nil makes graph sources fail.
	Graph           driver.GraphDriver
	Methods         config.MethodsConfig
	Timeout         time.Duration
	SnapshotTimeout time.Duration
	Logger          *slog.Logger

	validate *validator.Validate
}

// New builds a resolver from configuration.
func New(cfg *config.Config, remote, local jobclient.Caller, graph driver.GraphDriver) *Resolver {
	return &Resolver{
		Remote:          remote,
		Local:           local,
		SelfPort:        cfg.Server.Port,
		SelfHosts:       cfg.Server.SelfHosts,
		Graph:           graph,
		Methods:         cfg.Methods,
		Timeout:         cfg.Remote.Timeout(),
		SnapshotTimeout: cfg.Remote.SnapshotTimeout(),
		Logger:          slog.Default(),
		validate:        validator.New(),
	}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Resolve validates d, locates its view and captures its records. Every failure
// comes back as an Issue so the caller can skip the project and carry on.
func (r *Resolver) Resolve(ctx context.Context, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue) {
	if r.validate == nil {
		r.validate = validator.New()
	}
	if err := r.validate.Struct(d); err != nil {
		return nil, model.NewIssue(model.CodeBadSource, descriptorContext(d), "invalid project descriptor: %v", err)
	}

	switch d.SourceKind {
	case model.SourceRemote:
		return r.resolveRemote(ctx, d, opts)
	case model.SourceFile:
		return r.resolveFile(d)
	case model.SourceLineDelimitedFile:
		return r.resolveLines(d)
	case model.SourceGraph:
		return r.resolveGraph(ctx, d)
	}
	return nil, model.NewIssue(model.CodeBadSource, descriptorContext(d), "unsupported source kind %q", d.SourceKind)
}

func (r *Resolver) resolveRemote(ctx context.Context, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue) {
	view, issue := r.ResolveView(ctx, d.Endpoint, d.ViewID, d.ViewName, false)
	if issue != nil {
		return nil, issue
	}

	params := map[string]interface{}{
		"viewId":          view.ViewID,
		"categoryIds":     opts.CategoryIDs,
		"includeAnalytic": opts.IncludeAnalytic,
		"includeHidden":   opts.IncludeHidden,
	}
	if params["categoryIds"] == nil {
		params["categoryIds"] = []interface{}{}
	}

	payload, err := r.callerFor(view.Endpoint).Call(ctx, view.Endpoint, r.Methods.Snapshot, params, jobclient.WithTimeout(r.SnapshotTimeout))
	issueCtx := map[string]interface{}{"endpoint": view.Endpoint, "viewId": view.ViewID}
	if err != nil {
		return nil, RemoteIssue(err, issueCtx)
	}
	if len(payload) == 0 || payload["ok"] == false {
		msg := common.String(payload, "msg", "message", "error")
		if msg == "" {
			msg = "snapshot provider returned no payload"
		}
		return nil, model.NewIssue(model.CodeSnapshotFail, issueCtx, "snapshot of view %s failed: %s", view.ViewID, msg)
	}
	records := firstOf(payload, "elements", "records", "items")
	if records == nil && payload["ok"] != true {
		return nil, model.NewIssue(model.CodeSnapshotFail, issueCtx, "snapshot of view %s failed: payload carries no records", view.ViewID)
	}

	return &model.Resolved{
		Descriptor: d,
		View:       view,
		Snapshot: model.Snapshot{
			OK:      true,
			Records: recordsOf(records),
			Meta:    model.SnapshotMeta{SourceKind: model.SourceRemote, Endpoint: view.Endpoint},
		},
	}, nil
}

// ResolveView finds the view addressed by viewID or viewName on endpoint. A given
// viewID wins unless byName is set and viewName is present, in which case the
// name is looked up through the list-views operation.
func (r *Resolver) ResolveView(ctx context.Context, endpoint, viewID, viewName string, byName bool) (model.ResolvedView, *model.Issue) {
	ep := NormalizeEndpoint(endpoint)
	view := model.ResolvedView{Endpoint: ep, ViewID: viewID, ViewName: viewName}
	issueCtx := map[string]interface{}{"endpoint": ep, "viewId": viewID, "viewName": viewName}

	if ep == "" {
		return view, model.NewIssue(model.CodeBadSource, issueCtx, "endpoint is required")
	}
	if viewID != "" && (!byName || strings.TrimSpace(viewName) == "") {
		return view, nil
	}
	if strings.TrimSpace(viewName) == "" {
		return view, model.NewIssue(model.CodeViewNotFound, issueCtx, "neither viewId nor viewName given")
	}

	payload, err := r.callerFor(ep).Call(ctx, ep, r.Methods.ListViews, map[string]interface{}{}, jobclient.WithTimeout(r.Timeout))
	if err != nil {
		return view, RemoteIssue(err, issueCtx)
	}

	candidates := recordsOf(firstOf(payload, "views", "items"))
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = common.String(c, "name", "viewName", "title")
	}

	idx := normalize.Match(viewName, names)
	if idx < 0 {
		return view, model.NewIssue(model.CodeViewNotFound, issueCtx, "no view matching %q among %d views", viewName, len(names))
	}

	hit := candidates[idx]
	view.ViewID = common.String(hit, "viewId", "id")
	view.ViewName = names[idx]
	view.ViewType = common.String(hit, "viewType", "type")
	if view.ViewID == "" {
		return view, model.NewIssue(model.CodeViewNotFound, issueCtx, "view %q has no id", names[idx])
	}
	r.logger().Debug("resolved view by name", "endpoint", ep, "query", viewName, "view_id", view.ViewID)
	return view, nil
}

// Info invokes an auxiliary method (project or view info) on endpoint.
func (r *Resolver) Info(ctx context.Context, endpoint, method string, params map[string]interface{}) (map[string]interface{}, error) {
	ep := NormalizeEndpoint(endpoint)
	if params == nil {
		params = map[string]interface{}{}
	}
	return r.callerFor(ep).Call(ctx, ep, method, params, jobclient.WithTimeout(r.Timeout))
}

func (r *Resolver) resolveGraph(ctx context.Context, d model.ProjectDescriptor) (*model.Resolved, *model.Issue) {
	issueCtx := map[string]interface{}{"snapshot": d.Snapshot}
	if r.Graph == nil {
		return nil, model.NewIssue(model.CodeSnapshotFail, issueCtx, "no graph store configured")
	}

	records, err := driver.FetchSnapshotRecords(ctx, r.Graph, d.Snapshot)
	if err != nil {
		return nil, model.NewIssue(model.CodeSnapshotFail, issueCtx, "failed to load archived snapshot: %v", err)
	}
	return &model.Resolved{
		Descriptor: d,
		View:       model.ResolvedView{ViewName: d.Snapshot},
		Snapshot: model.Snapshot{
			OK:      true,
			Records: records,
			Meta:    model.SnapshotMeta{SourceKind: model.SourceGraph, Snapshot: d.Snapshot},
		},
	}, nil
}

func (r *Resolver) callerFor(endpoint string) jobclient.Caller {
	if r.Local != nil && r.IsSelf(endpoint) {
		return r.Local
	}
	return r.Remote
}

// IsSelf reports whether endpoint addresses this process.
func (r *Resolver) IsSelf(endpoint string) bool {
	if r.SelfPort <= 0 {
		return false
	}
	u, err := url.Parse(NormalizeEndpoint(endpoint))
	if err != nil {
		return false
	}
	if u.Port() != strconv.Itoa(r.SelfPort) {
		return false
	}
	host := u.Hostname()
	for _, h := range r.SelfHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// NormalizeEndpoint accepts a URL, host:port or a bare port and returns a base
// URL without a trailing slash.
func NormalizeEndpoint(endpoint string) string {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		return ""
	}
	if _, err := strconv.Atoi(ep); err == nil {
		return "http://" + net.JoinHostPort(loopback, ep)
	}
	if !strings.Contains(ep, "://") {
		ep = "http://" + ep
	}
	return strings.TrimRight(ep, "/")
}

// RemoteIssue maps a remote call failure onto its issue code.
func RemoteIssue(err error, ctx map[string]interface{}) *model.Issue {
	code := model.CodeResolveError
	switch {
	case errors.Is(err, jobclient.ErrTimeout):
		code = model.CodeRemoteTimeout
	case errors.Is(err, jobclient.ErrFailed):
		code = model.CodeRemoteFailed
	case errors.Is(err, jobclient.ErrUnreachable):
		code = model.CodeRemoteUnreachable
	}
	return model.NewIssue(code, ctx, "%v", err)
}

func descriptorContext(d model.ProjectDescriptor) map[string]interface{} {
	ctx := map[string]interface{}{"sourceKind": string(d.SourceKind)}
	for k, v := range map[string]string{"endpoint": d.Endpoint, "path": d.Path, "snapshot": d.Snapshot, "viewId": d.ViewID, "viewName": d.ViewName} {
		if v != "" {
			ctx[k] = v
		}
	}
	return ctx
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// recordsOf keeps the object entries of a decoded list.
func recordsOf(v interface{}) []model.Record {
	list, ok := v.([]interface{})
	if !ok {
		return []model.Record{}
	}
	out := make([]model.Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func fileIssue(path string, format string, args ...interface{}) *model.Issue {
	return model.NewIssue(model.CodeBadSource, map[string]interface{}{"path": path}, "%s", fmt.Sprintf(format, args...))
}
