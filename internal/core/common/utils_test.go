package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON[map[string]interface{}]("\ufeffINFO job done {\"ok\":true,\"n\":2} trailing")
	require.NoError(t, err)
	assert.Equal(t, true, got["ok"])

	_, err = ParseJSON[map[string]interface{}]("no object here")
	assert.Error(t, err)

	_, err = ParseJSON[map[string]interface{}]("} backwards {")
	assert.Error(t, err)
}

func TestCompactJSON(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": "<x>"}
	assert.Equal(t, `{"a":"<x>","b":1}`, CompactJSON(a))
}

func TestString(t *testing.T) {
	m := map[string]interface{}{
		"empty": "",
		"id":    float64(101),
		"num":   json.Number("7"),
		"name":  "Level 1",
	}
	assert.Equal(t, "Level 1", String(m, "missing", "empty", "name"))
	assert.Equal(t, "101", String(m, "id"))
	assert.Equal(t, "7", String(m, "num"))
	assert.Equal(t, "", String(m, "missing"))
}

func TestInt(t *testing.T) {
	m := map[string]interface{}{"a": float64(3), "b": json.Number("4"), "c": "x"}
	assert.Equal(t, 3, Int(m, -1, "a"))
	assert.Equal(t, 4, Int(m, -1, "b"))
	assert.Equal(t, -1, Int(m, -1, "c", "missing"))
}
