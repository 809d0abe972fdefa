// Package opentimeline loads a saved timeline from the backend, normalizes it
// into the store model and dispatches the actions that open it.
package opentimeline

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/modoterra/sightline/pkg/core"
)

const typenameKey = "__typename"

// StripTypename returns a deep copy of v with every "__typename" key removed.
// v is a decoded JSON tree: maps, slices and scalars.
func StripTypename(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == typenameKey {
				continue
			}
			out[k] = StripTypename(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StripTypename(val)
		}
		return out
	default:
		return v
	}
}

// DecodeTimelineResult decodes a raw getOneTimeline document, dropping type
// metadata first. Empty and null documents decode to a zero result.
func DecodeTimelineResult(raw []byte) (core.TimelineResult, error) {
	var result core.TimelineResult
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return result, fmt.Errorf("decode timeline: %w", err)
	}
	clean, err := json.Marshal(StripTypename(tree))
	if err != nil {
		return result, fmt.Errorf("encode timeline: %w", err)
	}
	if err := json.Unmarshal(clean, &result); err != nil {
		return result, fmt.Errorf("decode timeline: %w", err)
	}
	return result, nil
}
