// Package query issues read queries against the timeline backend.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// FetchPolicy controls how a query interacts with the response cache.
type FetchPolicy string

const (
	// CacheFirst answers from the cache when possible and stores network results.
	CacheFirst FetchPolicy = "cache-first"
	// NetworkOnly always hits the backend but still stores the result.
	NetworkOnly FetchPolicy = "network-only"
	// NoCache always hits the backend and never touches the cache.
	NoCache FetchPolicy = "no-cache"
)

// Operation names understood by the backend.
const (
	OpGetOneTimeline = "GetOneTimeline"
	OpListTimelines  = "ListTimelines"
)

// Descriptor names a backend operation and its variables.
type Descriptor struct {
	Operation string         `json:"operation"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GetOneTimeline returns the descriptor that fetches one timeline by saved object id.
func GetOneTimeline(id string) Descriptor {
	return Descriptor{Operation: OpGetOneTimeline, Variables: map[string]any{"id": id}}
}

// ListTimelines returns the descriptor that lists every saved timeline.
func ListTimelines() Descriptor {
	return Descriptor{Operation: OpListTimelines}
}

// CacheKey returns a stable key for d. Variables are JSON-encoded, which
// sorts map keys, so equal descriptors always share a key.
func (d Descriptor) CacheKey() (string, error) {
	b, err := json.Marshal(d.Variables)
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}
	sum := sha256.Sum256(b)
	return d.Operation + ":" + hex.EncodeToString(sum[:8]), nil
}

// Options tune a single query.
type Options struct {
	FetchPolicy FetchPolicy
}

// Response is the payload of a successful query, keyed by operation field,
// e.g. {"getOneTimeline": {...}}.
type Response struct {
	Data json.RawMessage `json:"data"`
}

// Field decodes one top-level field of the response data into v.
// It reports false when the field is absent or null.
func (r *Response) Field(name string, v any) (bool, error) {
	if r == nil || len(r.Data) == 0 {
		return false, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &fields); err != nil {
		return false, fmt.Errorf("decode response data: %w", err)
	}
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Client runs queries.
type Client interface {
	Query(ctx context.Context, d Descriptor, opts Options) (*Response, error)
}
