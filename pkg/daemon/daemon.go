// Package daemon implements timelined, the backend that serves saved
// timelines to sightline clients over a Unix socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modoterra/sightline/internal/buildinfo"
	"github.com/modoterra/sightline/pkg/core"
	"github.com/modoterra/sightline/pkg/opentimeline"
	"github.com/modoterra/sightline/pkg/storage"
	"github.com/modoterra/sightline/pkg/transport/uds"
)

// Daemon owns the timeline store and the socket server.
type Daemon struct {
	server  *uds.Server
	store   storage.Store
	metrics *Metrics
	logger  *slog.Logger

	mu    sync.Mutex
	count int
	known bool
}

// New creates a daemon serving st on socketPath. metrics may be nil.
func New(socketPath string, st storage.Store, metrics *Metrics, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		server:  uds.NewServer(socketPath, logger),
		store:   st,
		metrics: metrics,
		logger:  logger,
	}
	d.registerHandlers()
	return d
}

// Run serves requests until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	return d.server.Start(ctx)
}

// Shutdown closes the socket server.
func (d *Daemon) Shutdown() {
	d.server.Shutdown()
}

// Server returns the underlying UDS server (for broadcasting events).
func (d *Daemon) Server() *uds.Server {
	return d.server
}

func (d *Daemon) registerHandlers() {
	d.handle(uds.MethodPing, d.handlePing)
	d.handle(uds.MethodGetOneTimeline, d.handleGetOneTimeline)
	d.handle(uds.MethodListTimelines, d.handleListTimelines)
	d.handle(uds.MethodSaveTimeline, d.handleSaveTimeline)
	d.handle(uds.MethodDeleteTimeline, d.handleDeleteTimeline)
}

// handle registers h and records its outcome in the request metrics.
func (d *Daemon) handle(method string, h uds.HandlerFunc) {
	d.server.Handle(method, func(ctx context.Context, msg uds.Message) (any, error) {
		start := time.Now()
		res, err := h(ctx, msg)
		d.metrics.observe(method, start, err)
		if err != nil {
			d.logger.Debug("request failed", "method", method, "err", err)
		}
		return res, err
	})
}

func (d *Daemon) handlePing(_ context.Context, _ uds.Message) (any, error) {
	return uds.PingResponse{Pong: true, Version: buildinfo.Version}, nil
}

// GetOneTimelineResponse wraps the stored document the way clients expect it.
type GetOneTimelineResponse struct {
	GetOneTimeline any `json:"getOneTimeline"`
}

func (d *Daemon) handleGetOneTimeline(ctx context.Context, msg uds.Message) (any, error) {
	var req uds.GetOneTimelineRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if req.ID == "" {
		return nil, errors.New("invalid request: id is required")
	}

	doc, err := d.store.Get(ctx, req.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("timeline not found: %s", req.ID)
	}
	if err != nil {
		return nil, err
	}
	return GetOneTimelineResponse{GetOneTimeline: doc}, nil
}

func (d *Daemon) handleListTimelines(ctx context.Context, _ uds.Message) (any, error) {
	recs, err := d.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.OpenTimelineResult, 0, len(recs))
	for _, r := range recs {
		tl, err := opentimeline.DecodeTimelineResult(r.Doc)
		if err != nil {
			d.logger.Warn("skipping unreadable timeline", "id", r.SavedObjectID, "err", err)
			continue
		}
		out = append(out, core.SummarizeResult(tl))
	}
	return out, nil
}

func (d *Daemon) handleSaveTimeline(ctx context.Context, msg uds.Message) (any, error) {
	var req uds.SaveTimelineRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if len(req.Timeline) == 0 {
		return nil, errors.New("invalid request: timeline is required")
	}

	id, err := d.store.Put(ctx, req.Timeline)
	if err != nil {
		return nil, err
	}
	d.logger.Info("timeline saved", "id", id)
	d.notifyWrite(ctx)
	return uds.SaveTimelineResponse{SavedObjectID: id}, nil
}

func (d *Daemon) handleDeleteTimeline(ctx context.Context, msg uds.Message) (any, error) {
	var req uds.DeleteTimelineRequest
	if err := msg.UnmarshalData(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if err := d.store.Delete(ctx, req.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("timeline not found: %s", req.ID)
		}
		return nil, err
	}
	d.logger.Info("timeline deleted", "id", req.ID)
	d.notifyWrite(ctx)
	return map[string]bool{"ok": true}, nil
}

// Refresh recounts stored timelines, updates the gauges, and broadcasts a
// timelines.changed event when the count moved since the last refresh.
func (d *Daemon) Refresh(ctx context.Context) {
	n, ok := d.recount(ctx)
	if !ok {
		return
	}

	d.mu.Lock()
	changed := !d.known || n != d.count
	d.count, d.known = n, true
	d.mu.Unlock()
	if changed {
		d.broadcastChanged(n)
	}
}

// notifyWrite follows a successful save or delete. A write can replace a
// timeline without moving the count, so the event is always sent.
func (d *Daemon) notifyWrite(ctx context.Context) {
	n, ok := d.recount(ctx)
	if !ok {
		return
	}

	d.mu.Lock()
	d.count, d.known = n, true
	d.mu.Unlock()
	d.broadcastChanged(n)
}

func (d *Daemon) recount(ctx context.Context) (int, bool) {
	n, err := d.store.Count(ctx)
	if err != nil {
		d.logger.Error("count timelines", "err", err)
		return 0, false
	}
	if d.metrics != nil {
		d.metrics.Timelines.Set(float64(n))
		d.metrics.Clients.Set(float64(d.server.Clients()))
	}
	return n, true
}

func (d *Daemon) broadcastChanged(n int) {
	evt, err := uds.NewEvent(uds.EventTimelinesChanged, uds.TimelinesChangedEvent{Count: n})
	if err != nil {
		d.logger.Error("encode event", "err", err)
		return
	}
	d.server.Broadcast(evt)
}
