package facet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONCodecNestedStructures(t *testing.T) {
	codec := JSONCodec{}
	state := map[string]any{
		"name":    "ada",
		"age":     36.0,
		"active":  true,
		"note":    nil,
		"address": map[string]any{"city": "london", "zip": "n1"},
		"tags":    []any{"math", "engines"},
	}

	raw, err := codec.Encode(state)
	require.NoError(t, err)

	decoded, err := codec.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, state, decoded)
}

func TestJSONCodecRejectsUnserializable(t *testing.T) {
	_, err := JSONCodec{}.Encode(map[string]any{"fn": func() {}})
	require.Error(t, err)
}

func TestYAMLCodecNestedStructures(t *testing.T) {
	codec := YAMLCodec{}
	state := map[string]any{
		"name":   "ada",
		"count":  3,
		"active": false,
		"nested": map[string]any{"a": 1},
	}

	raw, err := codec.Encode(state)
	require.NoError(t, err)

	decoded, err := codec.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "ada", decoded["name"])
	require.Equal(t, 3, decoded["count"])
	require.Equal(t, false, decoded["active"])
}
