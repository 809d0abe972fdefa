package core

import "testing"

func strPtr(s string) *string { return &s }

func TestPinnedEventCount(t *testing.T) {
	tests := []struct {
		name   string
		pinned map[string]bool
		want   int
	}{
		{"absent", nil, 0},
		{"empty", map[string]bool{}, 0},
		{"three", map[string]bool{"a": true, "b": true, "c": false}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PinnedEventCount(OpenTimelineResult{PinnedEventIDs: tt.pinned})
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNoteCount(t *testing.T) {
	r := OpenTimelineResult{
		EventIDToNoteIDs: map[string][]string{
			"e1": {"n1", "n2"},
			"e2": {"n3"},
		},
		NoteIDs: []string{"n4"},
	}
	if got := NoteCount(r); got != 4 {
		t.Errorf("expected 4 notes, got %d", got)
	}
}

func TestNoteCountAbsentFields(t *testing.T) {
	if got := NoteCount(OpenTimelineResult{}); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := NoteCount(OpenTimelineResult{NoteIDs: []string{"a", "b"}}); got != 2 {
		t.Errorf("expected 2 global notes, got %d", got)
	}
	if got := NoteCount(OpenTimelineResult{EventIDToNoteIDs: map[string][]string{"e": {"x"}}}); got != 1 {
		t.Errorf("expected 1 event note, got %d", got)
	}
}

func TestIsUntitled(t *testing.T) {
	tests := []struct {
		name  string
		title *string
		want  bool
	}{
		{"nil", nil, true},
		{"empty", strPtr(""), true},
		{"blank", strPtr("   "), true},
		{"tabs", strPtr("\t\n"), true},
		{"titled", strPtr("Foo"), false},
		{"padded", strPtr("  Foo  "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUntitled(OpenTimelineResult{Title: tt.title}); got != tt.want {
				t.Errorf("IsUntitled: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizeResult(t *testing.T) {
	raw := TimelineResult{
		SavedObjectID: strPtr("t1"),
		Title:         strPtr("My TL"),
		EventIDToNoteIDs: []NoteResult{
			{NoteID: "n1", EventID: strPtr("e1")},
			{NoteID: "n2", EventID: strPtr("e1")},
			{NoteID: "n3"},
		},
		NoteIDs:        []string{"n4"},
		PinnedEventIDs: []string{"ev1", "ev2", "ev1"},
		Favorite:       []FavoriteTimelineResult{{UserName: strPtr("elastic")}},
	}

	r := SummarizeResult(raw)
	if r.SavedObjectID != "t1" {
		t.Errorf("savedObjectId: got %q", r.SavedObjectID)
	}
	if !r.Favorite {
		t.Error("expected favorite")
	}
	if got := PinnedEventCount(r); got != 2 {
		t.Errorf("pinned: got %d, want 2", got)
	}
	if got := NoteCount(r); got != 3 {
		t.Errorf("notes: got %d, want 3", got)
	}
}

func TestSummarizeResultKeepsAbsentMaps(t *testing.T) {
	r := SummarizeResult(TimelineResult{})
	if r.PinnedEventIDs != nil || r.EventIDToNoteIDs != nil {
		t.Errorf("expected nil maps for absent fields, got %+v", r)
	}
	if !IsUntitled(r) {
		t.Error("expected untitled")
	}
}
