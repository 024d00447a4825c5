package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/core/rowset"
	"github.com/agenthands/snapdiff/internal/core/snapshotdiff"
	"github.com/agenthands/snapdiff/internal/observability"
)

const (
	MinProjects = 2
	MaxProjects = 5
)

// Resolver is the slice of resolve.Resolver the engine depends on.
type Resolver interface {
	Resolve(ctx context.Context, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue)
	ResolveView(ctx context.Context, endpoint, viewID, viewName string, byName bool) (model.ResolvedView, *model.Issue)
	Info(ctx context.Context, endpoint, method string, params map[string]interface{}) (map[string]interface{}, error)
}

type Engine struct {
	Resolver Resolver
	// Collaborator is consulted first for every pair. Nil means rows only.
	Collaborator snapshotdiff.Differ
	Rows         *rowset.Differ
	Config       *config.Config
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

func NewEngine(cfg *config.Config, resolver Resolver, collaborator snapshotdiff.Differ, metrics *observability.Metrics) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		Resolver:     resolver,
		Collaborator: collaborator,
		Rows:         rowset.NewDiffer(),
		Config:       cfg,
		Metrics:      metrics,
		Logger:       slog.Default(),
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Compare resolves every project in order, diffs each against the baseline and
// aggregates one PairResult per pair. Projects that fail to resolve are skipped
// with an issue; the request fails only when fewer than two remain.
func (e *Engine) Compare(ctx context.Context, req model.CompareRequest) model.CompareResponse {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "Engine.Compare",
		trace.WithAttributes(attribute.Int("snapdiff.projects", len(req.Projects))))
	defer span.End()

	resp := e.compare(ctx, req)

	for _, is := range resp.Issues {
		e.Metrics.ObserveIssue(is.Code)
	}
	if !resp.OK {
		e.Metrics.ObserveIssue(resp.Code)
		span.SetStatus(codes.Error, resp.Code)
	}
	span.SetAttributes(attribute.Int("snapdiff.pairs", len(resp.Items)), attribute.Int("snapdiff.issues", len(resp.Issues)))
	e.Metrics.ObserveCompare(time.Since(start), resp.OK)

	e.logger().Info("comparison finished",
		"ok", resp.OK, "code", resp.Code, "pairs", len(resp.Items), "issues", len(resp.Issues),
		"duration_ms", time.Since(start).Milliseconds())
	return resp
}

func (e *Engine) compare(ctx context.Context, req model.CompareRequest) model.CompareResponse {
	resp := model.CompareResponse{Items: []model.PairResult{}, Issues: []model.Issue{}}

	if code, msg := checkCount(len(req.Projects)); code != "" {
		resp.Code, resp.Message = code, msg
		return resp
	}

	opts := e.snapshotOptions(req)
	resolved := make([]*model.Resolved, 0, len(req.Projects))
	for i, d := range req.Projects {
		res, issue := e.resolve(ctx, i, d, opts)
		if issue != nil {
			resp.Issues = append(resp.Issues, *issue)
			continue
		}
		resolved = append(resolved, res)
	}

	if len(resolved) < MinProjects {
		resp.Code = model.CodeNotEnough
		resp.Message = fmt.Sprintf("%d of %d projects resolved, need at least %d", len(resolved), len(req.Projects), MinProjects)
		return resp
	}

	b, clamp := baselineIndex(req.BaselineIndex, len(resolved))
	if clamp != nil {
		resp.Issues = append(resp.Issues, *clamp)
	}
	baseline := resolved[b]
	ref := baseline.Ref()
	resp.Baseline = &ref

	settings := req.Tolerance(e.Config.Tolerance)
	diffOpts := req.DiffOptions()
	for i, other := range resolved {
		if i == b {
			continue
		}
		item, issue := e.diffPair(ctx, baseline, other, req.Keys, settings, diffOpts)
		if issue != nil {
			resp.Issues = append(resp.Issues, *issue)
		}
		e.Metrics.ObservePair(string(item.DiffSource))
		resp.Items = append(resp.Items, item)
	}

	resp.OK = true
	return resp
}

func (e *Engine) resolve(ctx context.Context, i int, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "Resolver.Resolve", trace.WithAttributes(
		attribute.Int("snapdiff.index", i),
		attribute.String("snapdiff.source_kind", string(d.SourceKind)),
	))
	defer span.End()

	res, issue := e.Resolver.Resolve(ctx, d, opts)
	e.Metrics.ObserveResolve(string(d.SourceKind), time.Since(start), issue == nil)
	if issue != nil {
		if issue.Context == nil {
			issue.Context = map[string]interface{}{}
		}
		issue.Context["index"] = i
		span.SetStatus(codes.Error, issue.Code)
		e.logger().Warn("project skipped", "index", i, "source_kind", d.SourceKind, "code", issue.Code, "message", issue.Message)
		return nil, issue
	}

	res.Index = i
	span.SetAttributes(attribute.Int("snapdiff.records", len(res.Snapshot.Records)))
	return res, nil
}

func (e *Engine) snapshotOptions(req model.CompareRequest) model.SnapshotOptions {
	opts := model.SnapshotOptions{
		CategoryIDs:     req.Categories,
		IncludeAnalytic: e.Config.Compare.IncludeAnalytic,
		IncludeHidden:   e.Config.Compare.IncludeHidden,
	}
	if len(opts.CategoryIDs) == 0 {
		opts.CategoryIDs = e.Config.Compare.DefaultCategories
	}
	if req.IncludeAnalytic != nil {
		opts.IncludeAnalytic = *req.IncludeAnalytic
	}
	if req.IncludeHidden != nil {
		opts.IncludeHidden = *req.IncludeHidden
	}
	return opts
}

// diffPair prefers the collaborator and cross-checks it with the row-set differ
// according to the configured fallback policy.
func (e *Engine) diffPair(ctx context.Context, baseline, other *model.Resolved, keyFields []string, settings model.ToleranceSettings, opts model.SnapshotDiffOptions) (model.PairResult, *model.Issue) {
	ctx, span := observability.Tracer.Start(ctx, "Engine.diffPair", trace.WithAttributes(
		attribute.Int("snapdiff.baseline", baseline.Index),
		attribute.Int("snapdiff.compared", other.Index),
	))
	defer span.End()

	item := model.PairResult{
		BaselineProject:      baseline.Ref(),
		ComparedProject:      other.Ref(),
		TotalBaselineRecords: len(baseline.Snapshot.Records),
	}
	left, right := baseline.Snapshot.Records, other.Snapshot.Records

	var issue *model.Issue
	if e.Collaborator != nil {
		snap, err := e.Collaborator.DiffSnapshots(ctx, left, right, opts)
		if err == nil {
			if !e.shouldCrossCheck(snap) {
				return e.finish(span, item, fromSnapshot(snap), model.DiffSourceSnapshot), nil
			}
			rows := e.Rows.Diff(left, right, keyFields, settings)
			if rowsOverride(snap, rows) {
				e.logger().Debug("row-set differ overrides collaborator", "baseline", baseline.Index, "compared", other.Index,
					"modified", rows.Modified, "left_only", rows.LeftOnly, "right_only", rows.RightOnly)
				return e.finish(span, item, rows, model.DiffSourceRowsFallback), nil
			}
			return e.finish(span, item, fromSnapshot(snap), model.DiffSourceSnapshot), nil
		}

		issue = model.NewIssue(model.CodeCollaboratorFail,
			map[string]interface{}{"baseline": baseline.Index, "compared": other.Index},
			"snapshot diff failed, using row-set differ: %v", err)
		e.logger().Warn("snapshot diff failed", "baseline", baseline.Index, "compared", other.Index, "error", err)
	}

	rows := e.Rows.Diff(left, right, keyFields, settings)
	return e.finish(span, item, rows, model.DiffSourceRows), issue
}

func (e *Engine) finish(span trace.Span, item model.PairResult, r rowset.Result, source model.DiffSource) model.PairResult {
	item.ModifiedCount = r.Modified
	item.LeftOnlyCount = r.LeftOnly
	item.RightOnlyCount = r.RightOnly
	item.NameChangedCount = r.NameChanged
	item.Ratio = model.Ratio(r.Modified, item.TotalBaselineRecords)
	item.DiffSource = source

	span.SetAttributes(
		attribute.String("snapdiff.diff_source", string(source)),
		attribute.Int("snapdiff.modified", r.Modified),
	)
	return item
}

// shouldCrossCheck applies compare.fallback to a collaborator verdict.
func (e *Engine) shouldCrossCheck(snap *model.SnapshotDiff) bool {
	switch e.Config.Compare.Fallback {
	case config.FallbackNever:
		return false
	case config.FallbackAlways:
		return true
	case config.FallbackZeroModified:
		return snap.Modified == 0
	default:
		return snap.Modified == 0 && snap.Matched <= 0
	}
}

func snapshotTrivial(s *model.SnapshotDiff) bool {
	return s.Modified == 0 && s.LeftOnly == 0 && s.RightOnly == 0
}

// rowsOverride reports whether the row-set result replaces the collaborator's.
// A collaborator that found no correspondence reports elements as left or right
// only while the keyed rows still see them as modified.
func rowsOverride(s *model.SnapshotDiff, rows rowset.Result) bool {
	if rows.Trivial() {
		return false
	}
	return snapshotTrivial(s) || rows.Modified > s.Modified
}

func fromSnapshot(s *model.SnapshotDiff) rowset.Result {
	return rowset.Result{Modified: s.Modified, LeftOnly: s.LeftOnly, RightOnly: s.RightOnly, NameChanged: s.NameChanged}
}

func checkCount(n int) (string, string) {
	switch {
	case n < MinProjects:
		return model.CodeNeedTwo, fmt.Sprintf("need at least %d projects, got %d", MinProjects, n)
	case n > MaxProjects:
		return model.CodeTooMany, fmt.Sprintf("at most %d projects are supported, got %d", MaxProjects, n)
	}
	return "", ""
}

// baselineIndex clamps the requested index into [0, n).
func baselineIndex(requested *int, n int) (int, *model.Issue) {
	if requested == nil {
		return 0, nil
	}
	b := *requested
	switch {
	case b < 0:
		b = 0
	case b >= n:
		b = n - 1
	default:
		return b, nil
	}
	return b, model.NewIssue(model.CodeBaselineClamped,
		map[string]interface{}{"requested": *requested, "used": b},
		"baseline index %d out of range for %d resolved projects, using %d", *requested, n, b)
}
