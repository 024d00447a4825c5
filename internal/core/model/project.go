package model

// SourceKind names where a project's records come from.
type SourceKind string

const (
	SourceRemote            SourceKind = "remote"
	SourceFile              SourceKind = "file"
	SourceLineDelimitedFile SourceKind = "lineDelimitedFile"
	SourceGraph             SourceKind = "graph"
)

// ProjectDescriptor is the loose, caller-supplied description of one project.
type ProjectDescriptor struct {
	SourceKind SourceKind `json:"sourceKind" validate:"required,oneof=remote file lineDelimitedFile graph"`
	Endpoint   string     `json:"endpoint,omitempty" validate:"required_if=SourceKind remote"`
	ViewID     string     `json:"viewId,omitempty"`
	ViewName   string     `json:"viewName,omitempty"`
	Path       string     `json:"path,omitempty" validate:"required_if=SourceKind file,required_if=SourceKind lineDelimitedFile"`
	Snapshot   string     `json:"snapshot,omitempty" validate:"required_if=SourceKind graph"`
}

// ResolvedView is the concrete, addressable view a remote descriptor resolved to.
// ViewID is empty when resolution failed.
type ResolvedView struct {
	Endpoint string `json:"endpoint,omitempty"`
	ViewID   string `json:"viewId,omitempty"`
	ViewName string `json:"viewName,omitempty"`
	ViewType string `json:"viewType,omitempty"`
}

// Resolved pairs a resolved view with the snapshot taken from it.
type Resolved struct {
	Index      int
	Descriptor ProjectDescriptor
	View       ResolvedView
	Snapshot   Snapshot
}

// Ref describes the resolved project for responses.
func (r *Resolved) Ref() ProjectRef {
	return ProjectRef{
		Index:       r.Index,
		SourceKind:  r.Descriptor.SourceKind,
		Endpoint:    r.View.Endpoint,
		Path:        r.Descriptor.Path,
		Snapshot:    r.Descriptor.Snapshot,
		ViewID:      r.View.ViewID,
		ViewName:    r.View.ViewName,
		ViewType:    r.View.ViewType,
		RecordCount: len(r.Snapshot.Records),
	}
}

// ProjectRef identifies a project inside a response.
type ProjectRef struct {
	Index       int        `json:"index"`
	SourceKind  SourceKind `json:"sourceKind"`
	Endpoint    string     `json:"endpoint,omitempty"`
	Path        string     `json:"path,omitempty"`
	Snapshot    string     `json:"snapshot,omitempty"`
	ViewID      string     `json:"viewId,omitempty"`
	ViewName    string     `json:"viewName,omitempty"`
	ViewType    string     `json:"viewType,omitempty"`
	RecordCount int        `json:"recordCount"`
}
