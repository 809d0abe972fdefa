package core

import "time"

// UnknownUser is recorded as the author of notes that carry no editor.
const UnknownUser = "unknown"

// Note is a timeline note as held by the store.
type Note struct {
	ID           string    `json:"id"`
	Note         string    `json:"note"`
	User         string    `json:"user"`
	Created      time.Time `json:"created"`
	LastEdit     time.Time `json:"lastEdit"`
	SaveObjectID string    `json:"saveObjectId"`
	Version      *string   `json:"version,omitempty"`
}

// MillisToTime converts an epoch-milliseconds timestamp to a UTC time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
