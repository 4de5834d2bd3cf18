package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Ref
	}{
		{
			name:  "bare string id",
			input: `"u-1"`,
			want:  Ref{ID: "u-1"},
		},
		{
			name:  "object with id",
			input: `{"id":"u-2","name":"Acme"}`,
			want:  Ref{ID: "u-2", Name: "Acme"},
		},
		{
			name:  "object with _id only",
			input: `{"_id":"u-3","email":"a@b.c"}`,
			want:  Ref{ID: "u-3", Email: "a@b.c"},
		},
		{
			name:  "id wins over _id",
			input: `{"id":"u-4","_id":"stale"}`,
			want:  Ref{ID: "u-4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Ref
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoalesceID(t *testing.T) {
	assert.Equal(t, "a", CoalesceID("a", "b"))
	assert.Equal(t, "b", CoalesceID("", "b"))
	assert.Equal(t, "", CoalesceID("", ""))

	// idempotent: coalescing an already-coalesced value changes nothing
	once := CoalesceID("", "x")
	assert.Equal(t, once, CoalesceID(once, "x"))
}
