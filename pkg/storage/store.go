// Package storage persists saved timeline documents for timelined.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no timeline has the requested id.
var ErrNotFound = errors.New("timeline not found")

// Record is one stored timeline document.
type Record struct {
	SavedObjectID string
	Title         string
	Updated       int64
	Doc           json.RawMessage
}

// Store defines every storage operation the daemon needs, so handlers depend
// on the interface and not on a concrete database.
type Store interface {
	// Get returns the raw document for id, or ErrNotFound.
	Get(ctx context.Context, id string) (json.RawMessage, error)
	// Put inserts or replaces doc, keyed by its savedObjectId.
	Put(ctx context.Context, doc json.RawMessage) (string, error)
	// List returns every document, most recently updated first.
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	Close() error
}

// docHeader holds the document fields that are stored as columns.
type docHeader struct {
	SavedObjectID *string `json:"savedObjectId"`
	Title         *string `json:"title"`
	Updated       *int64  `json:"updated"`
}

// parseRecord validates doc and extracts its indexed fields.
func parseRecord(doc json.RawMessage) (Record, error) {
	var h docHeader
	if err := json.Unmarshal(doc, &h); err != nil {
		return Record{}, fmt.Errorf("decode timeline document: %w", err)
	}
	if h.SavedObjectID == nil || strings.TrimSpace(*h.SavedObjectID) == "" {
		return Record{}, errors.New("timeline document has no savedObjectId")
	}
	r := Record{SavedObjectID: *h.SavedObjectID, Doc: doc}
	if h.Title != nil {
		r.Title = *h.Title
	}
	if h.Updated != nil {
		r.Updated = *h.Updated
	}
	return r, nil
}
