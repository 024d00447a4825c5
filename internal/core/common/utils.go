package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseJSON unmarshals the first JSON object found in s into a T.
// Hosts sometimes prefix result payloads with log noise or a BOM, so anything
// before the first '{' and after the last '}' is ignored.
func ParseJSON[T any](s string) (T, error) {
	var zero T
	s = strings.TrimPrefix(s, "\ufeff")

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found (missing '{')")
	}
	if end < start {
		return zero, fmt.Errorf("no JSON object found (missing '}')")
	}

	var result T
	if err := json.Unmarshal([]byte(s[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// CompactJSON renders v as compact JSON. Map keys are sorted by encoding/json,
// so equal trees always render identically. HTML escaping is disabled so that
// keys stay readable.
func CompactJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// AsObject returns v as a JSON object when it is one.
func AsObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// String reads a string-ish field from an object. Numbers are formatted without
// a trailing fraction so that ids survive a float64 round trip.
func String(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		case int, int32, int64:
			return fmt.Sprintf("%d", t)
		default:
			return fmt.Sprintf("%v", t)
		}
	}
	return ""
}

// Int reads an integer-ish field from an object, returning def when absent.
func Int(m map[string]interface{}, def int, keys ...string) int {
	for _, k := range keys {
		switch t := m[k].(type) {
		case float64:
			return int(t)
		case int:
			return t
		case int64:
			return int(t)
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return int(n)
			}
		}
	}
	return def
}
