package core

const (
	// WorkingTimelineID is the store slot every opened timeline is loaded into.
	WorkingTimelineID = "timeline-1"

	// TimestampField is the id of the event timestamp column.
	TimestampField = "@timestamp"

	// DefaultColumnHeaderType is the header classification of every normalized column.
	DefaultColumnHeaderType = "not-filtered"

	// DefaultDateColumnMinWidth is the width of the timestamp column.
	DefaultDateColumnMinWidth = 190

	// DefaultColumnMinWidth is the width of every other column.
	DefaultColumnMinWidth = 180

	// DefaultTimelineWidth is the default width of the timeline flyout.
	DefaultTimelineWidth = 1100
)

// ColumnHeader describes one displayed field of a timeline.
type ColumnHeader struct {
	ColumnHeaderType string   `json:"columnHeaderType"`
	ID               string   `json:"id"`
	Aggregatable     *bool    `json:"aggregatable,omitempty"`
	Category         *string  `json:"category,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Example          *string  `json:"example,omitempty"`
	Indexes          []string `json:"indexes,omitempty"`
	Name             *string  `json:"name,omitempty"`
	Placeholder      *string  `json:"placeholder,omitempty"`
	Searchable       *bool    `json:"searchable,omitempty"`
	Type             *string  `json:"type,omitempty"`
	Width            int      `json:"width"`
}

// DateRange is a timeline time range in epoch milliseconds.
type DateRange struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// KqlQuery is the filter state of a timeline.
type KqlQuery struct {
	FilterQuery      *SerializedKueryQuery `json:"filterQuery"`
	FilterQueryDraft *KueryFilterQuery     `json:"filterQueryDraft"`
}

// Sort is the active sort of a timeline.
type Sort struct {
	ColumnID      string `json:"columnId"`
	SortDirection string `json:"sortDirection"`
}

// Model is the canonical timeline state held by the store.
type Model struct {
	ID                           string                 `json:"id"`
	Columns                      []ColumnHeader         `json:"columns"`
	DataProviders                []DataProvider         `json:"dataProviders"`
	DateRange                    *DateRange             `json:"dateRange,omitempty"`
	Description                  string                 `json:"description"`
	EventIDToNoteIDs             map[string][]string    `json:"eventIdToNoteIds"`
	HighlightedDropAndProviderID string                 `json:"highlightedDropAndProviderId"`
	HistoryIDs                   []string               `json:"historyIds"`
	IsFavorite                   bool                   `json:"isFavorite"`
	IsLive                       bool                   `json:"isLive"`
	IsLoading                    bool                   `json:"isLoading"`
	ItemsPerPage                 int                    `json:"itemsPerPage"`
	ItemsPerPageOptions          []int                  `json:"itemsPerPageOptions"`
	KqlMode                      string                 `json:"kqlMode"`
	KqlQuery                     KqlQuery               `json:"kqlQuery"`
	NoteIDs                      []string               `json:"noteIds"`
	PinnedEventIDs               map[string]bool        `json:"pinnedEventIds"`
	PinnedEventsSaveObject       map[string]PinnedEvent `json:"pinnedEventsSaveObject"`
	SavedObjectID                *string                `json:"savedObjectId"`
	Show                         bool                   `json:"show"`
	ShowCheckboxes               bool                   `json:"showCheckboxes"`
	ShowRowRenderers             bool                   `json:"showRowRenderers"`
	Sort                         Sort                   `json:"sort"`
	Title                        string                 `json:"title"`
	Version                      *string                `json:"version"`
	Width                        int                    `json:"width"`
}

// DefaultHeaders returns the column set used when a timeline has no columns.
func DefaultHeaders() []ColumnHeader {
	ids := []string{
		TimestampField,
		"message",
		"event.category",
		"event.action",
		"host.name",
		"source.ip",
		"destination.ip",
		"user.name",
	}
	headers := make([]ColumnHeader, 0, len(ids))
	for _, id := range ids {
		headers = append(headers, ColumnHeader{
			ColumnHeaderType: DefaultColumnHeaderType,
			ID:               id,
			Width:            ColumnWidth(id),
		})
	}
	return headers
}

// ColumnWidth returns the display width for a column id.
func ColumnWidth(id string) int {
	if id == TimestampField {
		return DefaultDateColumnMinWidth
	}
	return DefaultColumnMinWidth
}

// TimelineDefaults returns a fresh copy of the store-wide timeline defaults.
// Every call allocates new maps and slices so callers may mutate the result.
func TimelineDefaults() Model {
	return Model{
		Columns:                DefaultHeaders(),
		DataProviders:          []DataProvider{},
		EventIDToNoteIDs:       map[string][]string{},
		HistoryIDs:             []string{},
		ItemsPerPage:           25,
		ItemsPerPageOptions:    []int{10, 25, 50, 100},
		KqlMode:                "filter",
		NoteIDs:                []string{},
		PinnedEventIDs:         map[string]bool{},
		PinnedEventsSaveObject: map[string]PinnedEvent{},
		ShowRowRenderers:       true,
		Sort: Sort{
			ColumnID:      TimestampField,
			SortDirection: "desc",
		},
		Width: DefaultTimelineWidth,
	}
}
