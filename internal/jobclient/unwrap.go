package jobclient

import (
	"encoding/json"
	"strings"

	"github.com/agenthands/snapdiff/internal/core/common"
)

// MaxUnwrapDepth caps how many result/data/payload layers are peeled off.
const MaxUnwrapDepth = 10

var wrapperKeys = []string{"result", "data", "payload"}

// DomainKeys mark an object as a payload even without an "ok" field.
var DomainKeys = []string{"views", "elements", "items", "project", "document", "viewId", "modified", "modifiedCount"}

// isPayload reports whether m already looks like a method result.
func isPayload(m map[string]interface{}) bool {
	if _, ok := m["ok"]; ok {
		return true
	}
	return hasAny(m, DomainKeys)
}

// isDirect reports whether an enqueue reply already carries the answer.
func isDirect(m map[string]interface{}) bool {
	return isPayload(m) || hasAny(m, wrapperKeys)
}

// hasAny reports whether m holds a non-null value under one of keys.
func hasAny(m map[string]interface{}, keys []string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return true
		}
	}
	return false
}

// Unwrap peels result/data/payload wrappers until a payload-shaped object is found.
// JSON strings are decoded on the way. An empty object is returned when nothing
// payload-shaped is reachable within MaxUnwrapDepth levels.
func Unwrap(v interface{}) map[string]interface{} {
	return unwrap(v, 0)
}

func unwrap(v interface{}, depth int) map[string]interface{} {
	if depth > MaxUnwrapDepth {
		return map[string]interface{}{}
	}

	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return map[string]interface{}{}
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			obj, perr := common.ParseJSON[map[string]interface{}](s)
			if perr != nil {
				return map[string]interface{}{}
			}
			decoded = obj
		}
		return unwrap(decoded, depth+1)
	case map[string]interface{}:
		if isPayload(t) {
			return t
		}
		for _, k := range wrapperKeys {
			if inner, ok := t[k]; ok && inner != nil {
				return unwrap(inner, depth+1)
			}
		}
		return t
	}
	return map[string]interface{}{}
}
