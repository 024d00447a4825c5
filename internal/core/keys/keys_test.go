package keys

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/agenthands/snapdiff/internal/core/model"
)

func TestKeyOf_Priority(t *testing.T) {
	tests := []struct {
		name   string
		rec    model.Record
		fields []string
		want   string
	}{
		{"stable id wins", model.Record{"stableId": "abc-1", "numericId": 42.0}, nil, "uid:abc-1"},
		{"uniqueId alias", model.Record{"uniqueId": "u-9"}, nil, "uid:u-9"},
		{"numeric id", model.Record{"numericId": 42.0, "typeName": "Door"}, nil, "id:42"},
		{"elementId alias", model.Record{"elementId": 7}, nil, "id:7"},
		{"non-positive numeric id skipped", model.Record{"numericId": -1.0, "mark": "D1"}, []string{"mark"}, `k:"D1"`},
		{"blank stable id skipped", model.Record{"stableId": "  ", "numericId": 5.0}, nil, "id:5"},
		{"composite keys", model.Record{"level": "L1", "mark": "D1"}, []string{"mark", "level"}, `k:"D1"|"L1"`},
		{"composite with absent field", model.Record{"mark": "D1"}, []string{"mark", "level"}, `k:"D1"|`},
		{"composite all absent falls back", model.Record{"x": 1.0}, []string{"mark"}, `h:{"x":1}`},
		{"whole record", model.Record{"b": 2.0, "a": "x"}, nil, `h:{"a":"x","b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyOf(tt.rec, tt.fields))
		})
	}
}

func TestKeyOf_StableUnderFieldReordering(t *testing.T) {
	var a, b model.Record
	require.NoError(t, json.Unmarshal([]byte(`{"stableId":"S1","x":1,"y":{"p":1,"q":2}}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"y":{"q":2,"p":1},"x":1,"stableId":"S1"}`), &b))

	assert.Equal(t, KeyOf(a, nil), KeyOf(b, nil))
	assert.Equal(t, KeyOf(a, []string{"y"}), KeyOf(b, []string{"y"}))
}

func TestKeyOf_HashIsOrderIndependent(t *testing.T) {
	var a, b model.Record
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":2}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"y":2,"x":1}`), &b))

	assert.Equal(t, KeyOf(a, nil), KeyOf(b, nil))
}
