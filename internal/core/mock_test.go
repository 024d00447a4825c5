package core

import (
	"context"

	"github.com/agenthands/snapdiff/internal/core/model"
)

// MockResolver serves descriptors by Path and remote views by endpoint.
type MockResolver struct {
	Records map[string][]model.Record
	Issues  map[string]*model.Issue
	Views   map[string]model.ResolvedView
	Infos   map[string]map[string]interface{}
	InfoErr map[string]error

	ResolveCalls int
	ByName       []bool
}

func (m *MockResolver) Resolve(ctx context.Context, d model.ProjectDescriptor, opts model.SnapshotOptions) (*model.Resolved, *model.Issue) {
	m.ResolveCalls++
	if issue, ok := m.Issues[d.Path]; ok {
		copied := *issue
		return nil, &copied
	}
	return &model.Resolved{
		Descriptor: d,
		View:       model.ResolvedView{ViewName: d.Path},
		Snapshot:   model.Snapshot{OK: true, Records: m.Records[d.Path], Meta: model.SnapshotMeta{SourceKind: d.SourceKind, Path: d.Path}},
	}, nil
}

func (m *MockResolver) ResolveView(ctx context.Context, endpoint, viewID, viewName string, byName bool) (model.ResolvedView, *model.Issue) {
	m.ByName = append(m.ByName, byName)
	if issue, ok := m.Issues[endpoint]; ok {
		copied := *issue
		return model.ResolvedView{}, &copied
	}
	view, ok := m.Views[endpoint]
	if !ok {
		view = model.ResolvedView{Endpoint: endpoint, ViewID: viewID, ViewName: viewName}
	}
	return view, nil
}

func (m *MockResolver) Info(ctx context.Context, endpoint, method string, params map[string]interface{}) (map[string]interface{}, error) {
	key := endpoint + "|" + method
	if err := m.InfoErr[key]; err != nil {
		return nil, err
	}
	return m.Infos[key], nil
}

type MockCollaborator struct {
	Diff  *model.SnapshotDiff
	Err   error
	Calls int
}

func (m *MockCollaborator) DiffSnapshots(ctx context.Context, left, right []model.Record, opts model.SnapshotDiffOptions) (*model.SnapshotDiff, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	d := *m.Diff
	return &d, nil
}
