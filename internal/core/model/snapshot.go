package model

// Record is one opaque, loosely typed record tree decoded from JSON, YAML or a graph row.
type Record = map[string]interface{}

// SnapshotMeta records where a snapshot came from.
type SnapshotMeta struct {
	SourceKind SourceKind `json:"sourceKind"`
	Endpoint   string     `json:"endpoint,omitempty"`
	Path       string     `json:"path,omitempty"`
	Snapshot   string     `json:"snapshot,omitempty"`
}

// Snapshot is the ordered record list captured from one source.
type Snapshot struct {
	OK      bool         `json:"ok"`
	Records []Record     `json:"records"`
	Meta    SnapshotMeta `json:"meta"`
}

// SnapshotOptions are forwarded to the snapshot provider.
type SnapshotOptions struct {
	CategoryIDs     []interface{} `json:"categoryIds,omitempty"`
	IncludeAnalytic bool          `json:"includeAnalytic"`
	IncludeHidden   bool          `json:"includeHidden"`
}

// SnapshotDiffOptions carry the richer tolerances understood by the snapshot-diff collaborator.
type SnapshotDiffOptions struct {
	Keys             []string `json:"keys,omitempty"`
	PosTolMm         float64  `json:"posTolMm"`
	IncludeEndpoints bool     `json:"includeEndpoints"`
	EndpointsTolMm   float64  `json:"endpointsTolMm"`
}

// SnapshotDiff is the collaborator's verdict. Matched is -1 when the collaborator did
// not report how many element pairs it managed to correlate.
type SnapshotDiff struct {
	Modified    int
	LeftOnly    int
	RightOnly   int
	NameChanged int
	Matched     int
}
