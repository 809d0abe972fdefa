package core

// TimelineResult is a saved timeline as returned by the backend query service.
// Every optional field is a pointer or a nil-able slice: absent and null both
// decode to nil, an empty JSON array decodes to an empty non-nil slice.
type TimelineResult struct {
	SavedObjectID          *string                  `json:"savedObjectId,omitempty"`
	Version                *string                  `json:"version,omitempty"`
	Title                  *string                  `json:"title,omitempty"`
	Description            *string                  `json:"description,omitempty"`
	Columns                []ColumnHeaderResult     `json:"columns,omitempty"`
	DataProviders          []DataProvider           `json:"dataProviders,omitempty"`
	DateRange              *DateRangeResult         `json:"dateRange,omitempty"`
	EventIDToNoteIDs       []NoteResult             `json:"eventIdToNoteIds,omitempty"`
	Favorite               []FavoriteTimelineResult `json:"favorite,omitempty"`
	KqlMode                *string                  `json:"kqlMode,omitempty"`
	KqlQuery               *SerializedFilterQuery   `json:"kqlQuery,omitempty"`
	Notes                  []NoteResult             `json:"notes,omitempty"`
	NoteIDs                []string                 `json:"noteIds,omitempty"`
	PinnedEventIDs         []string                 `json:"pinnedEventIds,omitempty"`
	PinnedEventsSaveObject []PinnedEvent            `json:"pinnedEventsSaveObject,omitempty"`
	Sort                   *SortResult              `json:"sort,omitempty"`
	Created                *int64                   `json:"created,omitempty"`
	CreatedBy              *string                  `json:"createdBy,omitempty"`
	Updated                *int64                   `json:"updated,omitempty"`
	UpdatedBy              *string                  `json:"updatedBy,omitempty"`
}

// ColumnHeaderResult is one persisted column of a timeline.
type ColumnHeaderResult struct {
	Aggregatable     *bool    `json:"aggregatable,omitempty"`
	Category         *string  `json:"category,omitempty"`
	ColumnHeaderType *string  `json:"columnHeaderType,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Example          *string  `json:"example,omitempty"`
	Indexes          []string `json:"indexes,omitempty"`
	ID               *string  `json:"id,omitempty"`
	Name             *string  `json:"name,omitempty"`
	Placeholder      *string  `json:"placeholder,omitempty"`
	Searchable       *bool    `json:"searchable,omitempty"`
	Type             *string  `json:"type,omitempty"`
}

// DataProvider is a query fragment dropped onto a timeline.
type DataProvider struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	Excluded   bool           `json:"excluded"`
	KqlQuery   string         `json:"kqlQuery"`
	QueryMatch *QueryMatch    `json:"queryMatch,omitempty"`
	And        []DataProvider `json:"and,omitempty"`
}

// QueryMatch is the field/value pair a data provider matches on.
type QueryMatch struct {
	Field        string `json:"field"`
	DisplayField string `json:"displayField,omitempty"`
	Value        string `json:"value"`
	DisplayValue string `json:"displayValue,omitempty"`
	Operator     string `json:"operator"`
}

// DateRangeResult is the persisted time range, in epoch milliseconds.
type DateRangeResult struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// FavoriteTimelineResult marks a timeline as favorite for one user.
type FavoriteTimelineResult struct {
	FullName     *string `json:"fullName,omitempty"`
	UserName     *string `json:"userName,omitempty"`
	FavoriteDate *int64  `json:"favoriteDate,omitempty"`
}

// SerializedFilterQuery holds the structured filter of a timeline.
type SerializedFilterQuery struct {
	FilterQuery *SerializedKueryQuery `json:"filterQuery,omitempty"`
}

// SerializedKueryQuery is a kuery expression plus its serialized form.
type SerializedKueryQuery struct {
	Kuery           *KueryFilterQuery `json:"kuery,omitempty"`
	SerializedQuery *string           `json:"serializedQuery,omitempty"`
}

// KueryFilterQuery is a structured query expression.
type KueryFilterQuery struct {
	Kind       *string `json:"kind,omitempty"`
	Expression *string `json:"expression,omitempty"`
}

// SortResult is the persisted sort column and direction.
type SortResult struct {
	ColumnID      *string `json:"columnId,omitempty"`
	SortDirection *string `json:"sortDirection,omitempty"`
}

// PinnedEvent is a persisted pin of one event on a timeline.
type PinnedEvent struct {
	PinnedEventID   string  `json:"pinnedEventId"`
	EventID         *string `json:"eventId,omitempty"`
	TimelineID      *string `json:"timelineId,omitempty"`
	TimelineVersion *string `json:"timelineVersion,omitempty"`
	Created         *int64  `json:"created,omitempty"`
	CreatedBy       *string `json:"createdBy,omitempty"`
	Updated         *int64  `json:"updated,omitempty"`
	UpdatedBy       *string `json:"updatedBy,omitempty"`
	Version         *string `json:"version,omitempty"`
}

// NoteResult is a persisted note, either global or attached to an event.
type NoteResult struct {
	NoteID          string  `json:"noteId"`
	EventID         *string `json:"eventId,omitempty"`
	Note            *string `json:"note,omitempty"`
	TimelineID      *string `json:"timelineId,omitempty"`
	TimelineVersion *string `json:"timelineVersion,omitempty"`
	Created         *int64  `json:"created,omitempty"`
	CreatedBy       *string `json:"createdBy,omitempty"`
	Updated         *int64  `json:"updated,omitempty"`
	UpdatedBy       *string `json:"updatedBy,omitempty"`
	Version         *string `json:"version,omitempty"`
}
