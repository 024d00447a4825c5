// Package provider serves snapshots from this process for endpoints that address
// the engine itself, using the same method names and payload shapes as a remote host.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/core/common"
	"github.com/agenthands/snapdiff/internal/jobclient"
)

const selfEndpoint = "self"

// Directory answers list/snapshot/info calls from exported files:
//
//	<Root>/project.json         document identity (docGuid, title, ...)
//	<Root>/views/<viewId>.json  {viewId, name, viewType, elements}
type Directory struct {
	Root    string
	Methods config.MethodsConfig
}

func NewDirectory(root string, methods config.MethodsConfig) *Directory {
	return &Directory{Root: root, Methods: methods}
}

// Call implements jobclient.Caller. The endpoint and call options are ignored.
func (d *Directory) Call(ctx context.Context, _ string, method string, params interface{}, _ ...jobclient.CallOption) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, &jobclient.RemoteError{Kind: jobclient.KindTimeout, Endpoint: selfEndpoint, Method: method, Err: err}
	}
	p := paramsMap(params)

	switch method {
	case d.Methods.ListViews:
		return d.listViews()
	case d.Methods.Snapshot:
		return d.snapshot(common.String(p, "viewId"), categoryFilter(p["categoryIds"]))
	case d.Methods.ProjectInfo:
		return d.projectInfo()
	case d.Methods.ViewInfo:
		return d.viewInfo(common.String(p, "viewId"))
	}
	return nil, jobclient.Failed(selfEndpoint, method, "unknown method")
}

type viewFile struct {
	ViewID   string                   `json:"viewId"`
	Name     string                   `json:"name"`
	ViewType string                   `json:"viewType"`
	Elements []map[string]interface{} `json:"elements"`
}

func (d *Directory) listViews() (map[string]interface{}, error) {
	paths, err := filepath.Glob(filepath.Join(d.Root, "views", "*.json"))
	if err != nil {
		return nil, jobclient.Failed(selfEndpoint, d.Methods.ListViews, err.Error())
	}
	sort.Strings(paths)

	views := make([]interface{}, 0, len(paths))
	for _, p := range paths {
		v, err := readView(p)
		if err != nil {
			continue
		}
		if v.ViewID == "" {
			v.ViewID = strings.TrimSuffix(filepath.Base(p), ".json")
		}
		views = append(views, map[string]interface{}{"viewId": v.ViewID, "name": v.Name, "viewType": v.ViewType})
	}
	return map[string]interface{}{"ok": true, "views": views}, nil
}

func (d *Directory) snapshot(viewID string, allow map[string]bool) (map[string]interface{}, error) {
	v, err := d.view(viewID)
	if err != nil {
		return map[string]interface{}{"ok": false, "msg": err.Error()}, nil
	}

	elements := make([]interface{}, 0, len(v.Elements))
	for _, e := range v.Elements {
		if len(allow) > 0 && !allow[common.String(e, "categoryId", "category")] {
			continue
		}
		elements = append(elements, e)
	}
	return map[string]interface{}{"ok": true, "viewId": v.ViewID, "elements": elements}, nil
}

func (d *Directory) projectInfo() (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(d.Root, "project.json"))
	if err != nil {
		return map[string]interface{}{"ok": false, "msg": "project.json not found"}, nil
	}
	var info map[string]interface{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, jobclient.Failed(selfEndpoint, d.Methods.ProjectInfo, fmt.Sprintf("project.json: %v", err))
	}
	info["ok"] = true
	return info, nil
}

func (d *Directory) viewInfo(viewID string) (map[string]interface{}, error) {
	v, err := d.view(viewID)
	if err != nil {
		return map[string]interface{}{"ok": false, "msg": err.Error()}, nil
	}
	return map[string]interface{}{"ok": true, "viewId": v.ViewID, "name": v.Name, "viewType": v.ViewType}, nil
}

func (d *Directory) view(viewID string) (*viewFile, error) {
	if viewID == "" || strings.ContainsAny(viewID, `/\`) || strings.Contains(viewID, "..") {
		return nil, fmt.Errorf("invalid view id %q", viewID)
	}
	v, err := readView(filepath.Join(d.Root, "views", viewID+".json"))
	if err != nil {
		return nil, err
	}
	if v.ViewID == "" {
		v.ViewID = viewID
	}
	return v, nil
}

func readView(path string) (*viewFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("view file: %w", err)
	}
	var v viewFile
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("view file %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

func paramsMap(params interface{}) map[string]interface{} {
	if m, ok := params.(map[string]interface{}); ok {
		return m
	}
	out := map[string]interface{}{}
	if params == nil {
		return out
	}
	data, err := json.Marshal(params)
	if err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func categoryFilter(v interface{}) map[string]bool {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return nil
	}
	allow := make(map[string]bool, len(list))
	for _, c := range list {
		allow[common.String(map[string]interface{}{"c": c}, "c")] = true
	}
	return allow
}
