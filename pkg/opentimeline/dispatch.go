package opentimeline

import (
	"time"

	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/store"
)

// KindKuery is the filter kind applied when a timeline carries a kuery expression.
const KindKuery = "kuery"

// UpdateTimeline is everything needed to open a fetched timeline.
type UpdateTimeline struct {
	Duplicate bool
	ID        string
	From      int64
	To        int64
	Notes     []core.NoteResult
	Timeline  core.Model
}

// UpdateTimelineFunc builds the deferred update for u. Nothing happens until
// the returned func is called.
type UpdateTimelineFunc func(u UpdateTimeline) func()

// DispatchUpdateTimeline returns an UpdateTimelineFunc that sends the actions
// of UpdateTimelineActions to d. Note timestamps default to the time the
// update is run.
func DispatchUpdateTimeline(d store.Dispatcher) UpdateTimelineFunc {
	return DispatchUpdateTimelineWithClock(d, time.Now)
}

// DispatchUpdateTimelineWithClock is DispatchUpdateTimeline with an explicit clock.
func DispatchUpdateTimelineWithClock(d store.Dispatcher, now func() time.Time) UpdateTimelineFunc {
	return func(u UpdateTimeline) func() {
		return func() {
			for _, a := range UpdateTimelineActions(u, now()) {
				d.Dispatch(a)
			}
		}
	}
}

// UpdateTimelineActions returns, in dispatch order, the actions that open u:
// the visible range, the timeline itself, its kuery filter when it has a
// non-empty expression, and the note collection unless duplicating.
func UpdateTimelineActions(u UpdateTimeline, now time.Time) []store.Action {
	actions := []store.Action{
		store.SetTimelineRange{From: u.From, To: u.To},
		store.AddTimeline{ID: u.ID, Timeline: u.Timeline},
	}

	if fq := u.Timeline.KqlQuery.FilterQuery; fq != nil && fq.Kuery != nil &&
		(fq.Kuery.Expression == nil || *fq.Kuery.Expression != "") {
		kind := KindKuery
		expression := deref(fq.Kuery.Expression)
		actions = append(actions, store.ApplyKqlFilterQuery{
			ID: u.ID,
			FilterQuery: store.FilterQuery{
				Kuery:           core.KueryFilterQuery{Kind: &kind, Expression: &expression},
				SerializedQuery: deref(fq.SerializedQuery),
			},
		})
	}

	if !u.Duplicate {
		actions = append(actions, store.AddNotes{Notes: notesFromResults(u.Notes, now)})
	}
	return actions
}

func notesFromResults(results []core.NoteResult, now time.Time) []core.Note {
	notes := make([]core.Note, 0, len(results))
	for _, r := range results {
		n := core.Note{
			ID:           r.NoteID,
			Note:         deref(r.Note),
			User:         core.UnknownUser,
			Created:      now,
			LastEdit:     now,
			SaveObjectID: r.NoteID,
			Version:      r.Version,
		}
		if r.UpdatedBy != nil && *r.UpdatedBy != "" {
			n.User = *r.UpdatedBy
		}
		if r.Created != nil {
			n.Created = core.MillisToTime(*r.Created)
		}
		if r.Updated != nil {
			n.LastEdit = core.MillisToTime(*r.Updated)
		}
		notes = append(notes, n)
	}
	return notes
}
