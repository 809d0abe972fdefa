package core

import "strings"

// OpenTimelineResult is the summary of a saved timeline shown in listings.
// Nil maps and slices mean the backend did not supply the field.
type OpenTimelineResult struct {
	SavedObjectID    string              `json:"savedObjectId"`
	Version          *string             `json:"version,omitempty"`
	Title            *string             `json:"title,omitempty"`
	Description      *string             `json:"description,omitempty"`
	EventIDToNoteIDs map[string][]string `json:"eventIdToNoteIds,omitempty"`
	NoteIDs          []string            `json:"noteIds,omitempty"`
	PinnedEventIDs   map[string]bool     `json:"pinnedEventIds,omitempty"`
	Favorite         bool                `json:"favorite"`
	Updated          *int64              `json:"updated,omitempty"`
	UpdatedBy        *string             `json:"updatedBy,omitempty"`
}

// PinnedEventCount returns the number of pinned events in a timeline.
func PinnedEventCount(r OpenTimelineResult) int {
	if r.PinnedEventIDs == nil {
		return 0
	}
	return len(r.PinnedEventIDs)
}

// NoteCount returns the notes attached to events plus the notes on the timeline itself.
func NoteCount(r OpenTimelineResult) int {
	eventNotes := 0
	for _, ids := range r.EventIDToNoteIDs {
		eventNotes += len(ids)
	}
	return eventNotes + len(r.NoteIDs)
}

// IsUntitled reports whether the timeline has no usable title.
func IsUntitled(r OpenTimelineResult) bool {
	return r.Title == nil || strings.TrimSpace(*r.Title) == ""
}

// SummarizeResult builds the listing summary of a saved timeline.
func SummarizeResult(t TimelineResult) OpenTimelineResult {
	r := OpenTimelineResult{
		Version:     t.Version,
		Title:       t.Title,
		Description: t.Description,
		NoteIDs:     t.NoteIDs,
		Favorite:    len(t.Favorite) > 0,
		Updated:     t.Updated,
		UpdatedBy:   t.UpdatedBy,
	}
	if t.SavedObjectID != nil {
		r.SavedObjectID = *t.SavedObjectID
	}
	if t.EventIDToNoteIDs != nil {
		r.EventIDToNoteIDs = make(map[string][]string)
		for _, n := range t.EventIDToNoteIDs {
			if n.EventID != nil {
				r.EventIDToNoteIDs[*n.EventID] = append(r.EventIDToNoteIDs[*n.EventID], n.NoteID)
			}
		}
	}
	if t.PinnedEventIDs != nil {
		r.PinnedEventIDs = make(map[string]bool, len(t.PinnedEventIDs))
		for _, id := range t.PinnedEventIDs {
			r.PinnedEventIDs[id] = true
		}
	}
	return r
}
