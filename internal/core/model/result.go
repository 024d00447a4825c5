package model

// ToleranceSettings apply uniformly to every record pair of one comparison request.
type ToleranceSettings struct {
	NumericEpsilon        float64 `json:"numericEpsilon" toml:"numeric_epsilon"`
	StringCaseInsensitive bool    `json:"stringCaseInsensitive" toml:"string_case_insensitive"`
	StringTrim            bool    `json:"stringTrim" toml:"string_trim"`
	ArrayOrderInsensitive bool    `json:"arrayOrderInsensitive" toml:"array_order_insensitive"`
	// MaxDiffs <= 0 means unbounded.
	MaxDiffs int `json:"maxDiffs" toml:"max_diffs"`
}

// Difference is one mismatch found by the comparator.
type Difference struct {
	Path  string      `json:"path"`
	Left  interface{} `json:"left"`
	Right interface{} `json:"right"`
}

// DiffSource tells which differ produced a PairResult.
type DiffSource string

const (
	DiffSourceRows         DiffSource = "rows"
	DiffSourceSnapshot     DiffSource = "snapshot"
	DiffSourceRowsFallback DiffSource = "rows_fallback"
)

// PairResult summarizes one (baseline, other) comparison.
type PairResult struct {
	BaselineProject      ProjectRef `json:"baselineProject"`
	ComparedProject      ProjectRef `json:"comparedProject"`
	TotalBaselineRecords int        `json:"totalBaselineRecords"`
	ModifiedCount        int        `json:"modifiedCount"`
	LeftOnlyCount        int        `json:"leftOnlyCount"`
	RightOnlyCount       int        `json:"rightOnlyCount"`
	NameChangedCount     int        `json:"nameChangedCount"`
	Ratio                float64    `json:"ratio"`
	DiffSource           DiffSource `json:"diffSource"`
}

// Ratio returns modified/total, 0 when total is 0.
func Ratio(modified, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(modified) / float64(total)
}
