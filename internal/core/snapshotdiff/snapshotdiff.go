// Package snapshotdiff calls the external snapshot-diff collaborator, a host that
// correlates two element snapshots with domain semantics such as positional
// tolerance.
package snapshotdiff

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/snapdiff/internal/core/common"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/jobclient"
)

// Differ is implemented by anything that can diff two snapshots.
type Differ interface {
	DiffSnapshots(ctx context.Context, left, right []model.Record, opts model.SnapshotDiffOptions) (*model.SnapshotDiff, error)
}

type Remote struct {
	Caller   jobclient.Caller
	Endpoint string
	Method   string
	Timeout  time.Duration
}

func NewRemote(caller jobclient.Caller, endpoint, method string, timeout time.Duration) *Remote {
	return &Remote{Caller: caller, Endpoint: endpoint, Method: method, Timeout: timeout}
}

// DiffSnapshots sends both record lists and reads the counts back leniently.
// A reply without any modified count is an error.
func (r *Remote) DiffSnapshots(ctx context.Context, left, right []model.Record, opts model.SnapshotDiffOptions) (*model.SnapshotDiff, error) {
	params := map[string]interface{}{
		"left":             left,
		"right":            right,
		"keys":             opts.Keys,
		"posTolMm":         opts.PosTolMm,
		"includeEndpoints": opts.IncludeEndpoints,
		"endpointsTolMm":   opts.EndpointsTolMm,
	}
	if opts.Keys == nil {
		params["keys"] = []string{}
	}

	payload, err := r.Caller.Call(ctx, r.Endpoint, r.Method, params, jobclient.WithTimeout(r.Timeout))
	if err != nil {
		return nil, err
	}
	if payload["ok"] == false {
		msg := common.String(payload, "msg", "message", "error")
		return nil, fmt.Errorf("snapshot diff rejected: %s", msg)
	}
	return Parse(payload)
}

// Parse reads a collaborator reply. Counts may arrive as numbers or as lists of
// the affected elements.
func Parse(payload map[string]interface{}) (*model.SnapshotDiff, error) {
	modified, ok := count(payload, "modifiedCount", "modified")
	if !ok {
		return nil, fmt.Errorf("snapshot diff reply has no modified count")
	}
	out := &model.SnapshotDiff{Modified: modified, Matched: -1}
	out.LeftOnly, _ = count(payload, "leftOnlyCount", "leftOnly", "removed")
	out.RightOnly, _ = count(payload, "rightOnlyCount", "rightOnly", "added")
	out.NameChanged, _ = count(payload, "nameChangedCount", "nameChanged")
	if matched, ok := count(payload, "matchedCount", "matched"); ok {
		out.Matched = matched
	}
	return out, nil
}

func count(m map[string]interface{}, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case []interface{}:
			return len(t), true
		case bool:
			continue
		}
		if n := common.Int(map[string]interface{}{k: v}, -1, k); n >= 0 {
			return n, true
		}
	}
	return 0, false
}
