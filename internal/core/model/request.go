package model

// CompareRequest is the multi-project comparison request.
type CompareRequest struct {
	Projects              []ProjectDescriptor `json:"projects"`
	Categories            []interface{}       `json:"categories,omitempty"`
	Keys                  []string            `json:"keys,omitempty"`
	PosTolMm              *float64            `json:"posTolMm,omitempty"`
	IncludeEndpoints      *bool               `json:"includeEndpoints,omitempty"`
	EndpointsTolMm        *float64            `json:"endpointsTolMm,omitempty"`
	BaselineIndex         *int                `json:"baselineIndex,omitempty"`
	NumericEpsilon        *float64            `json:"numericEpsilon,omitempty"`
	StringCaseInsensitive *bool               `json:"stringCaseInsensitive,omitempty"`
	StringTrim            *bool               `json:"stringTrim,omitempty"`
	ArrayOrderInsensitive *bool               `json:"arrayOrderInsensitive,omitempty"`
	MaxDiffs              *int                `json:"maxDiffs,omitempty"`
	IncludeAnalytic       *bool               `json:"includeAnalytic,omitempty"`
	IncludeHidden         *bool               `json:"includeHidden,omitempty"`
}

// Tolerance overlays the request's tolerance fields on defaults.
func (r *CompareRequest) Tolerance(defaults ToleranceSettings) ToleranceSettings {
	t := defaults
	if r.NumericEpsilon != nil {
		t.NumericEpsilon = *r.NumericEpsilon
	}
	if r.StringCaseInsensitive != nil {
		t.StringCaseInsensitive = *r.StringCaseInsensitive
	}
	if r.StringTrim != nil {
		t.StringTrim = *r.StringTrim
	}
	if r.ArrayOrderInsensitive != nil {
		t.ArrayOrderInsensitive = *r.ArrayOrderInsensitive
	}
	if r.MaxDiffs != nil {
		t.MaxDiffs = *r.MaxDiffs
	}
	return t
}

// DiffOptions extracts the collaborator tolerances.
func (r *CompareRequest) DiffOptions() SnapshotDiffOptions {
	opts := SnapshotDiffOptions{Keys: r.Keys}
	if r.PosTolMm != nil {
		opts.PosTolMm = *r.PosTolMm
	}
	if r.IncludeEndpoints != nil {
		opts.IncludeEndpoints = *r.IncludeEndpoints
	}
	if r.EndpointsTolMm != nil {
		opts.EndpointsTolMm = *r.EndpointsTolMm
	}
	return opts
}

// CompareResponse is returned by the orchestrator. Code and Message are set only when OK is false.
type CompareResponse struct {
	OK       bool         `json:"ok"`
	Code     string       `json:"code,omitempty"`
	Message  string       `json:"message,omitempty"`
	Baseline *ProjectRef  `json:"baseline,omitempty"`
	Items    []PairResult `json:"items"`
	Issues   []Issue      `json:"issues"`
}

// ContextProject is one entry of a context-validation request.
type ContextProject struct {
	Endpoint string `json:"endpoint"`
	ViewID   string `json:"viewId,omitempty"`
	ViewName string `json:"viewName,omitempty"`
}

// ContextRequest asks whether several remote views are comparable.
type ContextRequest struct {
	Projects            []ContextProject `json:"projects"`
	RequireSameProject  bool             `json:"requireSameProject"`
	RequireSameViewType bool             `json:"requireSameViewType"`
	ResolveByName       bool             `json:"resolveByName"`
}

// ContextItem is the per-project document and view metadata.
type ContextItem struct {
	Index    int    `json:"index"`
	Endpoint string `json:"endpoint"`
	DocGUID  string `json:"docGuid,omitempty"`
	DocTitle string `json:"docTitle,omitempty"`
	DocKey   string `json:"docKey"`
	ViewID   string `json:"viewId,omitempty"`
	ViewName string `json:"viewName,omitempty"`
	ViewType string `json:"viewType,omitempty"`
}

// ContextChecks are the comparability verdicts.
type ContextChecks struct {
	AllSameProject  bool `json:"allSameProject"`
	AllSameViewType bool `json:"allSameViewType"`
}

// ContextResponse is returned by the context validator.
type ContextResponse struct {
	OK      bool          `json:"ok"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
	Count   int           `json:"count"`
	Items   []ContextItem `json:"items"`
	Checks  ContextChecks `json:"checks"`
	Issues  []Issue       `json:"issues"`
}
