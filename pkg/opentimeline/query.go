package opentimeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/datemath"
	"github.com/modoterra/sightline/pkg/query"
	"github.com/modoterra/sightline/pkg/store"
)

// DefaultFrom is the start of the range used when a timeline has none.
const DefaultFrom = "now-24h"

// LoadingFunc toggles a named loading indicator.
type LoadingFunc func(store.UpdateIsLoading)

// LoadingSink returns a LoadingFunc that dispatches to d.
func LoadingSink(d store.Dispatcher) LoadingFunc {
	return func(a store.UpdateIsLoading) { d.Dispatch(a) }
}

// QueryTimelineByIDParams configures QueryTimelineByID.
type QueryTimelineByIDParams struct {
	Client     query.Client // nil skips the fetch
	Duplicate  bool
	TimelineID string

	UpdateIsLoading LoadingFunc
	UpdateTimeline  UpdateTimelineFunc // may be nil

	Now    func() time.Time // defaults to time.Now
	Logger *slog.Logger
}

// QueryTimelineByID fetches one saved timeline, bypassing any response cache,
// and opens it in the working timeline slot.
//
// Loading is switched on for core.WorkingTimelineID before anything else. If
// there is a client, loading is switched off again when the call returns,
// including on error or panic. Without a client the call is a no-op after the
// loading-start signal. Fetch and decode errors are returned.
func QueryTimelineByID(ctx context.Context, p QueryTimelineByIDParams) error {
	setLoading := p.UpdateIsLoading
	if setLoading == nil {
		setLoading = func(store.UpdateIsLoading) {}
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	setLoading(store.UpdateIsLoading{ID: core.WorkingTimelineID, IsLoading: true})
	if p.Client == nil {
		return nil
	}
	defer setLoading(store.UpdateIsLoading{ID: core.WorkingTimelineID, IsLoading: false})

	logger.Debug("fetching timeline", "id", p.TimelineID, "duplicate", p.Duplicate)
	resp, err := p.Client.Query(ctx, query.GetOneTimeline(p.TimelineID), query.Options{FetchPolicy: query.NoCache})
	if err != nil {
		return fmt.Errorf("get timeline %s: %w", p.TimelineID, err)
	}

	var doc json.RawMessage
	if _, err := resp.Field("getOneTimeline", &doc); err != nil {
		return fmt.Errorf("get timeline %s: %w", p.TimelineID, err)
	}
	raw, err := DecodeTimelineResult(doc)
	if err != nil {
		return fmt.Errorf("get timeline %s: %w", p.TimelineID, err)
	}

	formatted := FormatTimelineResultToModel(raw, p.Duplicate)
	from, to := timelineRange(formatted.Timeline.DateRange, now())

	if p.UpdateTimeline != nil {
		p.UpdateTimeline(UpdateTimeline{
			Duplicate: p.Duplicate,
			ID:        core.WorkingTimelineID,
			From:      from,
			To:        to,
			Notes:     formatted.Notes,
			Timeline:  formatted.Timeline,
		})()
	}
	return nil
}

// timelineRange resolves the visible range of a timeline: its own start and
// end when recorded, else the last 24 hours ending now.
func timelineRange(dr *core.DateRange, now time.Time) (from, to int64) {
	from = datemath.ParseMillis(DefaultFrom, now)
	to = now.UnixMilli()
	if dr == nil {
		return from, to
	}
	if dr.Start != nil {
		from = *dr.Start
	}
	if dr.End != nil {
		to = *dr.End
	}
	return from, to
}

// Open fetches timelineID and dispatches the actions that open it to d.
func Open(ctx context.Context, client query.Client, d store.Dispatcher, timelineID string, duplicate bool) error {
	return QueryTimelineByID(ctx, QueryTimelineByIDParams{
		Client:          client,
		Duplicate:       duplicate,
		TimelineID:      timelineID,
		UpdateIsLoading: LoadingSink(d),
		UpdateTimeline:  DispatchUpdateTimeline(d),
	})
}
