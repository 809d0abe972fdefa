// Package store holds timeline UI state and the actions that change it.
package store

import "github.com/modoterra/sightline/pkg/core"

// Action is a discrete state change. Every action type in this package
// implements it; Reduce applies them.
type Action interface {
	actionType() string
}

// Dispatcher accepts actions. *Store implements it; so does the TUI program sink.
type Dispatcher interface {
	Dispatch(a Action)
}

// DispatchFunc adapts a plain function to a Dispatcher.
type DispatchFunc func(a Action)

// Dispatch calls f(a).
func (f DispatchFunc) Dispatch(a Action) { f(a) }

// SetTimelineRange sets the global visible time range of the timeline picker.
type SetTimelineRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// AddTimeline registers or replaces a working timeline.
type AddTimeline struct {
	ID       string     `json:"id"`
	Timeline core.Model `json:"timeline"`
}

// FilterQuery is the structured filter applied to a timeline.
type FilterQuery struct {
	Kuery           core.KueryFilterQuery `json:"kuery"`
	SerializedQuery string                `json:"serializedQuery"`
}

// ApplyKqlFilterQuery applies a structured filter to a working timeline.
type ApplyKqlFilterQuery struct {
	ID          string      `json:"id"`
	FilterQuery FilterQuery `json:"filterQuery"`
}

// AddNotes replaces the global note collection.
type AddNotes struct {
	Notes []core.Note `json:"notes"`
}

// UpdateIsLoading toggles a named loading indicator.
type UpdateIsLoading struct {
	ID        string `json:"id"`
	IsLoading bool   `json:"isLoading"`
}

func (SetTimelineRange) actionType() string    { return "inputs/setTimelineRangeDatePicker" }
func (AddTimeline) actionType() string         { return "timeline/addTimeline" }
func (ApplyKqlFilterQuery) actionType() string { return "timeline/applyKqlFilterQuery" }
func (AddNotes) actionType() string            { return "app/addNotes" }
func (UpdateIsLoading) actionType() string     { return "timeline/updateIsLoading" }

// TypeOf returns the action's type name, as used in logs and the action log.
func TypeOf(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionType()
}
