package facet

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec converts a state record to and from its stored text form. The
// default codec must faithfully round-trip numbers, strings, booleans,
// nil and nested plain structures. Cyclic or otherwise non-serializable
// values fail the encode; callers treat that as a logged, non-fatal
// persistence failure.
type Codec interface {
	Encode(state map[string]any) (string, error)
	Decode(raw string) (map[string]any, error)
}

// JSONCodec is the default state codec. Note that JSON decoding widens all
// numbers to float64.
type JSONCodec struct{}

func (JSONCodec) Encode(state map[string]any) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return string(data), nil
}

func (JSONCodec) Decode(raw string) (map[string]any, error) {
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// YAMLCodec is an alternative codec for installations that keep persisted
// state human-editable.
type YAMLCodec struct{}

func (YAMLCodec) Encode(state map[string]any) (string, error) {
	data, err := yaml.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return string(data), nil
}

func (YAMLCodec) Decode(raw string) (map[string]any, error) {
	var state map[string]any
	if err := yaml.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}
