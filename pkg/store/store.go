package store

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/modoterra/sightline/pkg/core"
)

// TimeRange is the global visible range of the timeline, in epoch milliseconds.
type TimeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// State is the full timeline UI state.
type State struct {
	Range     TimeRange             `json:"range"`
	Timelines map[string]core.Model `json:"timelineById"`
	Notes     []core.Note           `json:"notes"`
	Loading   map[string]bool       `json:"loading"`
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Timelines: make(map[string]core.Model),
		Notes:     []core.Note{},
		Loading:   make(map[string]bool),
	}
}

// Reduce returns the state that results from applying a to s. It never
// mutates s: maps are copied before they are written.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetTimelineRange:
		s.Range = TimeRange{From: a.From, To: a.To}

	case AddTimeline:
		s.Timelines = cloneMap(s.Timelines)
		s.Timelines[a.ID] = a.Timeline

	case ApplyKqlFilterQuery:
		tl, ok := s.Timelines[a.ID]
		if !ok {
			return s
		}
		kuery := a.FilterQuery.Kuery
		serialized := a.FilterQuery.SerializedQuery
		tl.KqlQuery = core.KqlQuery{
			FilterQuery: &core.SerializedKueryQuery{
				Kuery:           &kuery,
				SerializedQuery: &serialized,
			},
			FilterQueryDraft: &kuery,
		}
		s.Timelines = cloneMap(s.Timelines)
		s.Timelines[a.ID] = tl

	case AddNotes:
		notes := make([]core.Note, len(a.Notes))
		copy(notes, a.Notes)
		s.Notes = notes

	case UpdateIsLoading:
		s.Loading = cloneMap(s.Loading)
		s.Loading[a.ID] = a.IsLoading
		if tl, ok := s.Timelines[a.ID]; ok {
			tl.IsLoading = a.IsLoading
			s.Timelines = cloneMap(s.Timelines)
			s.Timelines[a.ID] = tl
		}
	}
	return s
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return make(map[K]V)
	}
	return maps.Clone(m)
}

// Listener is called with the new state after every dispatch.
type Listener func(s State, a Action)

// Store is a mutex-guarded State. Dispatch applies one action at a time in
// call order; listeners run after the lock is released.
type Store struct {
	mu        sync.Mutex
	state     State
	log       []Action
	listeners []Listener
	logger    *slog.Logger
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{state: NewState(), logger: logger}
}

// Dispatch applies a to the store state.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.log = append(s.log, a)
	state := s.state
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Debug("action dispatched", "type", TypeOf(a))
	for _, l := range listeners {
		l(state, a)
	}
}

// Subscribe registers a listener for state changes.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Actions returns every action dispatched so far, oldest first.
func (s *Store) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.log))
	copy(out, s.log)
	return out
}
