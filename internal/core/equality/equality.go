// Package equality implements tolerant structural equality over loosely typed
// record trees (objects, arrays and scalars as produced by JSON or YAML decoding).
package equality

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/agenthands/snapdiff/internal/core/model"
)

// RootPath names the root when no prefix is given.
const RootPath = "$"

// Compare runs Equal from the root and returns the recorded differences.
func Compare(left, right interface{}, settings model.ToleranceSettings) (bool, []model.Difference) {
	var diffs []model.Difference
	eq := Equal(left, right, settings, "", &diffs)
	return eq, diffs
}

// Equal reports whether left and right are equal under settings and appends
// every mismatch to *diffs. Recording stops once settings.MaxDiffs differences
// exist, so a false result comes with a possibly incomplete list. It returns true
// iff no difference was recorded.
func Equal(left, right interface{}, settings model.ToleranceSettings, pathPrefix string, diffs *[]model.Difference) bool {
	if diffs == nil {
		diffs = &[]model.Difference{}
	}
	c := &collector{diffs: diffs, max: settings.MaxDiffs, start: len(*diffs)}
	c.compare(left, right, settings, pathPrefix)
	return c.recorded() == 0
}

type collector struct {
	diffs *[]model.Difference
	max   int
	start int
}

func (c *collector) recorded() int { return len(*c.diffs) - c.start }

func (c *collector) full() bool { return c.max > 0 && c.recorded() >= c.max }

func (c *collector) add(path string, left, right interface{}) {
	if c.full() {
		return
	}
	if path == "" {
		path = RootPath
	}
	*c.diffs = append(*c.diffs, model.Difference{Path: path, Left: left, Right: right})
}

func (c *collector) compare(left, right interface{}, s model.ToleranceSettings, path string) {
	if c.full() {
		return
	}

	if left == nil || right == nil {
		if left != nil || right != nil {
			c.add(path, left, right)
		}
		return
	}

	if lf, ok := toFloat(left); ok {
		rf, ok := toFloat(right)
		if !ok || (lf != rf && !(math.Abs(lf-rf) <= s.NumericEpsilon)) {
			c.add(path, left, right)
		}
		return
	}

	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok || !stringsEqual(l, r, s) {
			c.add(path, left, right)
		}
	case bool:
		r, ok := right.(bool)
		if !ok || l != r {
			c.add(path, left, right)
		}
	case map[string]interface{}:
		r, ok := right.(map[string]interface{})
		if !ok {
			c.add(path, left, right)
			return
		}
		c.compareMaps(l, r, s, path)
	case []interface{}:
		r, ok := right.([]interface{})
		if !ok {
			c.add(path, left, right)
			return
		}
		if s.ArrayOrderInsensitive {
			c.compareMultiset(l, r, s, path)
		} else {
			c.compareOrdered(l, r, s, path)
		}
	default:
		// Unknown scalar kinds compare by their JSON rendering.
		lb, lerr := json.Marshal(left)
		rb, rerr := json.Marshal(right)
		if lerr != nil || rerr != nil || string(lb) != string(rb) {
			c.add(path, left, right)
		}
	}
}

func (c *collector) compareMaps(l, r map[string]interface{}, s model.ToleranceSettings, path string) {
	keys := make([]string, 0, len(l)+len(r))
	for k := range l {
		keys = append(keys, k)
	}
	for k := range r {
		if _, ok := l[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if c.full() {
			return
		}
		lv, lok := l[k]
		rv, rok := r[k]
		child := joinKey(path, k)
		if lok != rok {
			c.add(child, lv, rv)
			continue
		}
		c.compare(lv, rv, s, child)
	}
}

func (c *collector) compareOrdered(l, r []interface{}, s model.ToleranceSettings, path string) {
	n := len(l)
	if len(r) > n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		if c.full() {
			return
		}
		child := joinIndex(path, i)
		switch {
		case i >= len(l):
			c.add(child, nil, r[i])
		case i >= len(r):
			c.add(child, l[i], nil)
		default:
			c.compare(l[i], r[i], s, child)
		}
	}
}

// compareMultiset pairs every left element with the first unused equal right
// element. Leftovers on either side are reported at their own index.
func (c *collector) compareMultiset(l, r []interface{}, s model.ToleranceSettings, path string) {
	used := make([]bool, len(r))
	probe := s
	probe.MaxDiffs = 1

	for i, lv := range l {
		matched := false
		for j, rv := range r {
			if used[j] {
				continue
			}
			if Equal(lv, rv, probe, "", nil) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			c.add(joinIndex(path, i), lv, nil)
			if c.full() {
				return
			}
		}
	}
	for j, rv := range r {
		if !used[j] {
			c.add(joinIndex(path, j), nil, rv)
			if c.full() {
				return
			}
		}
	}
}

func stringsEqual(l, r string, s model.ToleranceSettings) bool {
	if s.StringTrim {
		l = strings.TrimSpace(l)
		r = strings.TrimSpace(r)
	}
	if s.StringCaseInsensitive {
		return strings.EqualFold(l, r)
	}
	return l == r
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func joinIndex(prefix string, i int) string {
	return prefix + "[" + strconv.Itoa(i) + "]"
}
