// Package rowset aligns two record sets by identity key and classifies every key
// as modified, left-only or right-only.
package rowset

import (
	"sort"
	"strings"

	"github.com/agenthands/snapdiff/internal/core/equality"
	"github.com/agenthands/snapdiff/internal/core/keys"
	"github.com/agenthands/snapdiff/internal/core/model"
)

// NameFields are the record fields whose change counts as an identity-relevant rename.
var NameFields = []string{"familyName", "typeName"}

// Result is the outcome of one row-set diff. Key lists are sorted.
type Result struct {
	Modified      int
	LeftOnly      int
	RightOnly     int
	NameChanged   int
	ModifiedKeys  []string
	LeftOnlyKeys  []string
	RightOnlyKeys []string
	Diffs         map[string][]model.Difference
}

// Trivial reports whether the diff found nothing at all.
func (r Result) Trivial() bool {
	return r.Modified == 0 && r.LeftOnly == 0 && r.RightOnly == 0
}

// Differ holds the key strategy used to align rows.
type Differ struct {
	Keys keys.Strategy
}

// NewDiffer returns a differ using the default key strategy.
func NewDiffer() *Differ {
	return &Differ{Keys: keys.Default()}
}

// Diff aligns left and right by key and compares paired records. For each key
// only the first record carrying it is considered.
func (d *Differ) Diff(left, right []model.Record, keyFields []string, settings model.ToleranceSettings) Result {
	lm := d.index(left, keyFields)
	rm := d.index(right, keyFields)

	all := make([]string, 0, len(lm)+len(rm))
	for k := range lm {
		all = append(all, k)
	}
	for k := range rm {
		if _, ok := lm[k]; !ok {
			all = append(all, k)
		}
	}
	sort.Strings(all)

	res := Result{Diffs: map[string][]model.Difference{}}
	for _, k := range all {
		lrec, lok := lm[k]
		rrec, rok := rm[k]
		switch {
		case lok && !rok:
			res.LeftOnly++
			res.LeftOnlyKeys = append(res.LeftOnlyKeys, k)
		case rok && !lok:
			res.RightOnly++
			res.RightOnlyKeys = append(res.RightOnlyKeys, k)
		default:
			var diffs []model.Difference
			if equality.Equal(lrec, rrec, settings, "", &diffs) {
				continue
			}
			res.Modified++
			res.ModifiedKeys = append(res.ModifiedKeys, k)
			res.Diffs[k] = diffs
			if nameChanged(diffs) {
				res.NameChanged++
			}
		}
	}
	return res
}

// Diff uses a default differ.
func Diff(left, right []model.Record, keyFields []string, settings model.ToleranceSettings) Result {
	return NewDiffer().Diff(left, right, keyFields, settings)
}

func (d *Differ) index(recs []model.Record, keyFields []string) map[string]model.Record {
	m := make(map[string]model.Record, len(recs))
	for _, rec := range recs {
		k := d.Keys.KeyOf(rec, keyFields)
		if _, seen := m[k]; !seen {
			m[k] = rec
		}
	}
	return m
}

func nameChanged(diffs []model.Difference) bool {
	for _, df := range diffs {
		for _, f := range NameFields {
			if strings.EqualFold(df.Path, f) {
				return true
			}
		}
	}
	return false
}
