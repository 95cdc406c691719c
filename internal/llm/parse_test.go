package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectRoundTrip(t *testing.T) {
	obj := map[string]any{
		"title":    "Chapter",
		"sections": []any{"a", "b", map[string]any{"nested": []any{"x", "y"}}},
		"count":    float64(3),
	}
	raw, err := json.Marshal(obj)
	require.NoError(t, err)

	got, err := ParseObject(string(raw))
	require.NoError(t, err)
	assert.Equal(t, obj, got)
}

func TestParseObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"json fence", "```json\n{\"a\":1}\n```", map[string]any{"a": float64(1)}},
		{"bare fence", "```\n{\"a\":1}\n```", map[string]any{"a": float64(1)}},
		{"prose around", "Sure! Here it is: {\"a\":\"b\"} Hope that helps.", map[string]any{"a": "b"}},
		{"brace in string", "note {\"a\":\"x}y{\"} trailing }", map[string]any{"a": "x}y{"}},
		{"escaped quote", "x {\"a\":\"say \\\"}\\\"\"} y", map[string]any{"a": "say \"}\""}},
		{"first of two", "{\"a\":1} {\"b\":2}", map[string]any{"a": float64(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObject(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectMalformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{\"a\":", "{\"a\": tru}", "null"} {
		_, err := ParseObject(raw)
		assert.ErrorIs(t, err, ErrMalformedResponse, raw)
	}
}

func TestParseJSONTyped(t *testing.T) {
	var out struct {
		Domain     string  `json:"domain"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, ParseJSON("```json\n{\"domain\":\"Medical\",\"confidence\":0.8}\n```", &out))
	assert.Equal(t, "Medical", out.Domain)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
}
