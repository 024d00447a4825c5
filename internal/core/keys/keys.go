// Package keys derives the identity key used to align records across snapshots.
package keys

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/agenthands/snapdiff/internal/core/common"
	"github.com/agenthands/snapdiff/internal/core/model"
)

const (
	PrefixStable    = "uid:"
	PrefixNumeric   = "id:"
	PrefixComposite = "k:"
	PrefixHash      = "h:"
)

// Strategy lists the field names probed for identifiers, in priority order.
type Strategy struct {
	StableIDFields  []string
	NumericIDFields []string
}

// Default probes stableId/uniqueId then numericId/elementId.
func Default() Strategy {
	return Strategy{
		StableIDFields:  []string{"stableId", "uniqueId"},
		NumericIDFields: []string{"numericId", "elementId"},
	}
}

// KeyOf returns the first non-empty of: stable id, positive numeric id,
// composite of keyFields, compact JSON of the whole record.
func (s Strategy) KeyOf(rec model.Record, keyFields []string) string {
	for _, f := range s.StableIDFields {
		if v, ok := rec[f].(string); ok && strings.TrimSpace(v) != "" {
			return PrefixStable + v
		}
	}

	for _, f := range s.NumericIDFields {
		if id, ok := positiveInt(rec[f]); ok {
			return PrefixNumeric + strconv.FormatInt(id, 10)
		}
	}

	if len(keyFields) > 0 {
		parts := make([]string, len(keyFields))
		for i, f := range keyFields {
			if v, ok := rec[f]; ok {
				parts[i] = common.CompactJSON(v)
			}
		}
		composite := strings.Join(parts, "|")
		if strings.Trim(composite, "|") != "" {
			return PrefixComposite + composite
		}
	}

	return PrefixHash + common.CompactJSON(rec)
}

// KeyOf uses the default strategy.
func KeyOf(rec model.Record, keyFields []string) string {
	return Default().KeyOf(rec, keyFields)
}

func positiveInt(v interface{}) (int64, bool) {
	var n int64
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		n = int64(t)
	case float32:
		n = int64(t)
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint64:
		n = int64(t)
	case json.Number:
		parsed, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return n, n > 0
}
