package daemon

import (
	"context"
	"log/slog"
	"time"
)

// StatsLoop refreshes the daemon's storage statistics every interval so that
// writes made directly to the database still reach metrics and clients.
type StatsLoop struct {
	daemon   *Daemon
	interval time.Duration
	logger   *slog.Logger
}

// NewStatsLoop creates a stats loop for the given daemon.
func NewStatsLoop(d *Daemon, interval time.Duration, logger *slog.Logger) *StatsLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsLoop{daemon: d, interval: interval, logger: logger}
}

// Run refreshes once immediately, then on every tick. Blocks until ctx is cancelled.
func (sl *StatsLoop) Run(ctx context.Context) {
	sl.daemon.Refresh(ctx)

	ticker := time.NewTicker(sl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sl.logger.Debug("stats loop stopped")
			return
		case <-ticker.C:
			sl.daemon.Refresh(ctx)
		}
	}
}
