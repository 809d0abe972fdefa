package opentimeline

import "github.com/modoterra/sightline/pkg/core"

// unknownColumnID names a persisted column that has no id.
const unknownColumnID = "unknown"

// FormattedTimeline is a fetched timeline split into its notes and its model.
type FormattedTimeline struct {
	Notes    []core.NoteResult
	Timeline core.Model
}

// FormatTimelineResultToModel splits the notes off raw and normalizes the rest.
func FormatTimelineResultToModel(raw core.TimelineResult, duplicate bool) FormattedTimeline {
	notes := raw.Notes
	raw.Notes = nil
	return FormattedTimeline{
		Notes:    notes,
		Timeline: Normalize(raw, duplicate),
	}
}

// Normalize converts a fetched timeline into the store model.
//
// The result starts from core.TimelineDefaults with an empty id. Fields present
// on raw are copied over, then the computed fields are applied. A computed
// value that is absent is skipped, so the default stays. In duplicate mode the
// computed savedObjectId and version are absent, which leaves the defaults
// (also absent) in place.
func Normalize(raw core.TimelineResult, duplicate bool) core.Model {
	m := core.TimelineDefaults()
	m.ID = ""

	if raw.Description != nil {
		m.Description = *raw.Description
	}
	if raw.DataProviders != nil {
		m.DataProviders = raw.DataProviders
	}
	if raw.DateRange != nil {
		m.DateRange = &core.DateRange{Start: raw.DateRange.Start, End: raw.DateRange.End}
	}
	if raw.KqlMode != nil {
		m.KqlMode = *raw.KqlMode
	}
	if raw.KqlQuery != nil {
		m.KqlQuery = core.KqlQuery{FilterQuery: raw.KqlQuery.FilterQuery}
	}
	if raw.Sort != nil {
		m.Sort = core.Sort{ColumnID: deref(raw.Sort.ColumnID), SortDirection: deref(raw.Sort.SortDirection)}
	}

	if raw.Columns != nil {
		m.Columns = normalizeColumns(raw.Columns)
	}

	if duplicate {
		m.Title = ""
		return m
	}

	if raw.EventIDToNoteIDs != nil {
		m.EventIDToNoteIDs = eventNoteIDs(raw.EventIDToNoteIDs)
	}
	m.IsFavorite = len(raw.Favorite) > 0
	if raw.NoteIDs != nil {
		m.NoteIDs = raw.NoteIDs
	}
	if raw.PinnedEventIDs != nil {
		for _, id := range raw.PinnedEventIDs {
			m.PinnedEventIDs[id] = true
		}
	}
	for _, pe := range raw.PinnedEventsSaveObject {
		if pe.EventID != nil {
			m.PinnedEventsSaveObject[*pe.EventID] = pe
		}
	}
	if raw.SavedObjectID != nil {
		m.ID = *raw.SavedObjectID
		m.SavedObjectID = raw.SavedObjectID
	}
	if raw.Version != nil {
		m.Version = raw.Version
	}
	m.Title = deref(raw.Title)
	return m
}

func normalizeColumns(cols []core.ColumnHeaderResult) []core.ColumnHeader {
	out := make([]core.ColumnHeader, 0, len(cols))
	for _, c := range cols {
		id := unknownColumnID
		if c.ID != nil {
			id = *c.ID
		}
		out = append(out, core.ColumnHeader{
			ColumnHeaderType: core.DefaultColumnHeaderType,
			ID:               id,
			Aggregatable:     c.Aggregatable,
			Category:         c.Category,
			Description:      c.Description,
			Example:          c.Example,
			Indexes:          c.Indexes,
			Name:             c.Name,
			Placeholder:      c.Placeholder,
			Searchable:       c.Searchable,
			Type:             c.Type,
			Width:            core.ColumnWidth(id),
		})
	}
	return out
}

// eventNoteIDs groups note ids by event id, keeping input order. Notes
// without an event id are skipped.
func eventNoteIDs(notes []core.NoteResult) map[string][]string {
	out := make(map[string][]string)
	for _, n := range notes {
		if n.EventID == nil {
			continue
		}
		out[*n.EventID] = append(out[*n.EventID], n.NoteID)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
