package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/observability"
)

func baselineRecords() []model.Record {
	return []model.Record{
		{"stableId": "A", "typeName": "Door"},
		{"stableId": "B", "typeName": "Window"},
	}
}

func files(paths ...string) []model.ProjectDescriptor {
	out := make([]model.ProjectDescriptor, len(paths))
	for i, p := range paths {
		out[i] = model.ProjectDescriptor{SourceKind: model.SourceFile, Path: p}
	}
	return out
}

func newEngine(resolver Resolver, collaborator *MockCollaborator, fallback string) *Engine {
	cfg := config.Default()
	if fallback != "" {
		cfg.Compare.Fallback = fallback
	}
	if collaborator == nil {
		return NewEngine(cfg, resolver, nil, observability.NewMetrics())
	}
	return NewEngine(cfg, resolver, collaborator, observability.NewMetrics())
}

func intPtr(i int) *int { return &i }

func TestCompare_ProjectCount(t *testing.T) {
	resolver := &MockResolver{}
	e := newEngine(resolver, nil, "")

	resp := e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b", "c", "d", "e", "f")})
	assert.False(t, resp.OK)
	assert.Equal(t, model.CodeTooMany, resp.Code)
	assert.Zero(t, resolver.ResolveCalls)

	resp = e.Compare(context.Background(), model.CompareRequest{Projects: files("a")})
	assert.False(t, resp.OK)
	assert.Equal(t, model.CodeNeedTwo, resp.Code)
	assert.Zero(t, resolver.ResolveCalls)
}

func TestCompare_RowsScenarios(t *testing.T) {
	resolver := &MockResolver{Records: map[string][]model.Record{
		"base":    baselineRecords(),
		"swapped": {{"stableId": "A", "typeName": "Door"}, {"stableId": "C", "typeName": "Window"}},
		"renamed": {{"stableId": "A", "typeName": "DoubleDoor"}, {"stableId": "B", "typeName": "Window"}},
	}}
	resp := newEngine(resolver, nil, "").Compare(context.Background(), model.CompareRequest{Projects: files("base", "swapped", "renamed")})
	require.True(t, resp.OK)
	require.Len(t, resp.Items, 2)
	assert.Empty(t, resp.Issues)
	assert.Equal(t, "base", resp.Baseline.Path)

	swapped := resp.Items[0]
	assert.Equal(t, 0, swapped.ModifiedCount)
	assert.Equal(t, 1, swapped.LeftOnlyCount)
	assert.Equal(t, 1, swapped.RightOnlyCount)
	assert.Equal(t, 2, swapped.TotalBaselineRecords)
	assert.Equal(t, 0.0, swapped.Ratio)
	assert.Equal(t, model.DiffSourceRows, swapped.DiffSource)

	renamed := resp.Items[1]
	assert.Equal(t, 1, renamed.ModifiedCount)
	assert.Equal(t, 1, renamed.NameChangedCount)
	assert.Equal(t, 0, renamed.LeftOnlyCount+renamed.RightOnlyCount)
	assert.Equal(t, 0.5, renamed.Ratio)
	assert.Equal(t, 2, renamed.ComparedProject.Index)
}

func TestCompare_EmptyBaselineRatio(t *testing.T) {
	resolver := &MockResolver{Records: map[string][]model.Record{
		"empty": {},
		"other": baselineRecords(),
	}}
	resp := newEngine(resolver, nil, "").Compare(context.Background(), model.CompareRequest{Projects: files("empty", "other")})
	require.True(t, resp.OK)
	assert.Equal(t, 0, resp.Items[0].TotalBaselineRecords)
	assert.Equal(t, 0.0, resp.Items[0].Ratio)
	assert.Equal(t, 2, resp.Items[0].RightOnlyCount)
}

func TestCompare_SkipsFailedProjects(t *testing.T) {
	resolver := &MockResolver{
		Records: map[string][]model.Record{"a": baselineRecords(), "c": baselineRecords()},
		Issues:  map[string]*model.Issue{"b": model.NewIssue(model.CodeViewNotFound, nil, "no view")},
	}
	resp := newEngine(resolver, nil, "").Compare(context.Background(), model.CompareRequest{Projects: files("a", "b", "c")})
	require.True(t, resp.OK)
	require.Len(t, resp.Items, 1)
	require.Len(t, resp.Issues, 1)

	assert.Equal(t, model.CodeViewNotFound, resp.Issues[0].Code)
	assert.Equal(t, 1, resp.Issues[0].Context["index"])
	assert.Equal(t, 2, resp.Items[0].ComparedProject.Index)
}

func TestCompare_NotEnough(t *testing.T) {
	fail := model.NewIssue(model.CodeSnapshotFail, nil, "down")
	resolver := &MockResolver{
		Records: map[string][]model.Record{"a": baselineRecords()},
		Issues:  map[string]*model.Issue{"b": fail, "c": fail},
	}
	resp := newEngine(resolver, nil, "").Compare(context.Background(), model.CompareRequest{Projects: files("a", "b", "c")})
	assert.False(t, resp.OK)
	assert.Equal(t, model.CodeNotEnough, resp.Code)
	assert.Len(t, resp.Issues, 2)
	assert.Empty(t, resp.Items)
}

func TestCompare_BaselineIndex(t *testing.T) {
	resolver := &MockResolver{Records: map[string][]model.Record{"a": baselineRecords(), "b": {}}}
	e := newEngine(resolver, nil, "")

	resp := e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b"), BaselineIndex: intPtr(1)})
	require.True(t, resp.OK)
	assert.Equal(t, "b", resp.Baseline.Path)
	assert.Empty(t, resp.Issues)

	resp = e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b"), BaselineIndex: intPtr(7)})
	require.True(t, resp.OK)
	assert.Equal(t, "b", resp.Baseline.Path)
	require.Len(t, resp.Issues, 1)
	assert.Equal(t, model.CodeBaselineClamped, resp.Issues[0].Code)

	resp = e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b"), BaselineIndex: intPtr(-3)})
	assert.Equal(t, "a", resp.Baseline.Path)
	assert.Equal(t, model.CodeBaselineClamped, resp.Issues[0].Code)
}

func TestCompare_ToleranceFromRequest(t *testing.T) {
	resolver := &MockResolver{Records: map[string][]model.Record{
		"a": {{"stableId": "A", "width": 900.0, "mark": "D1"}},
		"b": {{"stableId": "A", "width": 900.4, "mark": " d1 "}},
	}}
	e := newEngine(resolver, nil, "")

	resp := e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})
	assert.Equal(t, 1, resp.Items[0].ModifiedCount)

	eps, yes := 0.5, true
	resp = e.Compare(context.Background(), model.CompareRequest{
		Projects:              files("a", "b"),
		NumericEpsilon:        &eps,
		StringTrim:            &yes,
		StringCaseInsensitive: &yes,
	})
	assert.Equal(t, 0, resp.Items[0].ModifiedCount)
}

func TestCompare_FallbackPolicy(t *testing.T) {
	records := map[string][]model.Record{
		"a": baselineRecords(),
		"b": {{"stableId": "A", "typeName": "DoubleDoor"}, {"stableId": "B", "typeName": "Window"}},
	}
	cases := []struct {
		policy string
		diff   model.SnapshotDiff
		want   model.DiffSource
		mod    int
	}{
		{config.FallbackNoMatch, model.SnapshotDiff{Matched: -1}, model.DiffSourceRowsFallback, 1},
		{config.FallbackNoMatch, model.SnapshotDiff{Matched: 0}, model.DiffSourceRowsFallback, 1},
		{config.FallbackNoMatch, model.SnapshotDiff{Matched: 2}, model.DiffSourceSnapshot, 0},
		{config.FallbackZeroModified, model.SnapshotDiff{Matched: 2}, model.DiffSourceRowsFallback, 1},
		{config.FallbackNever, model.SnapshotDiff{Matched: -1}, model.DiffSourceSnapshot, 0},
		{config.FallbackAlways, model.SnapshotDiff{Modified: 3, Matched: 2}, model.DiffSourceSnapshot, 3},
		{config.FallbackAlways, model.SnapshotDiff{LeftOnly: 1, Matched: -1}, model.DiffSourceRowsFallback, 1},
		{config.FallbackNoMatch, model.SnapshotDiff{LeftOnly: 2, RightOnly: 2, Matched: -1}, model.DiffSourceRowsFallback, 1},
		{config.FallbackNoMatch, model.SnapshotDiff{Modified: 4, Matched: -1}, model.DiffSourceSnapshot, 4},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%+v", tc.policy, tc.diff), func(t *testing.T) {
			diff := tc.diff
			collab := &MockCollaborator{Diff: &diff}
			resp := newEngine(&MockResolver{Records: records}, collab, tc.policy).
				Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})
			require.True(t, resp.OK)

			assert.Equal(t, 1, collab.Calls)
			assert.Equal(t, tc.want, resp.Items[0].DiffSource)
			assert.Equal(t, tc.mod, resp.Items[0].ModifiedCount)
		})
	}
}

func TestCompare_FallbackKeepsTrivialResult(t *testing.T) {
	records := map[string][]model.Record{"a": baselineRecords(), "b": baselineRecords()}
	collab := &MockCollaborator{Diff: &model.SnapshotDiff{Matched: -1}}
	resp := newEngine(&MockResolver{Records: records}, collab, "").
		Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})

	assert.Equal(t, model.DiffSourceSnapshot, resp.Items[0].DiffSource)
	assert.Equal(t, 0, resp.Items[0].ModifiedCount)
}

func TestCompare_FallbackWithoutCorrespondence(t *testing.T) {
	records := map[string][]model.Record{
		"a": baselineRecords(),
		"b": {{"stableId": "A", "typeName": "DoubleDoor"}, {"stableId": "B", "typeName": "Window"}},
	}
	collab := &MockCollaborator{Diff: &model.SnapshotDiff{LeftOnly: 2, RightOnly: 2, Matched: -1}}
	resp := newEngine(&MockResolver{Records: records}, collab, "").
		Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})
	require.True(t, resp.OK)

	item := resp.Items[0]
	assert.Equal(t, model.DiffSourceRowsFallback, item.DiffSource)
	assert.Equal(t, 1, item.ModifiedCount)
	assert.Equal(t, 1, item.NameChangedCount)
	assert.Equal(t, 0, item.LeftOnlyCount)
	assert.Equal(t, 0, item.RightOnlyCount)
	assert.InDelta(t, 0.5, item.Ratio, 1e-9)
}

func TestCompare_CollaboratorFailure(t *testing.T) {
	records := map[string][]model.Record{"a": baselineRecords(), "b": {{"stableId": "A", "typeName": "Door"}}}
	collab := &MockCollaborator{Err: errors.New("collaborator down")}
	resp := newEngine(&MockResolver{Records: records}, collab, "").
		Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})
	require.True(t, resp.OK)

	require.Len(t, resp.Issues, 1)
	assert.Equal(t, model.CodeCollaboratorFail, resp.Issues[0].Code)
	assert.Equal(t, model.DiffSourceRows, resp.Items[0].DiffSource)
	assert.Equal(t, 1, resp.Items[0].LeftOnlyCount)
}

func TestCompare_CategoriesDefault(t *testing.T) {
	var seen model.SnapshotOptions
	resolver := &optionsResolver{MockResolver: &MockResolver{}, seen: &seen}
	e := newEngine(resolver, nil, "")
	e.Config.Compare.DefaultCategories = []interface{}{"OST_Walls"}

	e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b")})
	assert.Equal(t, []interface{}{"OST_Walls"}, seen.CategoryIDs)

	no := false
	e.Compare(context.Background(), model.CompareRequest{Projects: files("a", "b"), Categories: []interface{}{float64(7)}, IncludeHidden: &no})
	assert.Equal(t, []interface{}{float64(7)}, seen.CategoryIDs)
	assert.False(t, seen.IncludeHidden)
}

type optionsResolver struct {
	*MockResolver
	seen *model.SnapshotOptions
}

func (o *optionsResolver) Resolve(ctx context.Context, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue) {
	*o.seen = opts
	return o.MockResolver.Resolve(ctx, d, opts)
}
