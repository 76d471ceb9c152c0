// Package poller re-invokes a refresh operation on a fixed interval for
// telemetry that no user interaction invalidates. Overlapping runs are not
// serialized: each refresh replaces shared display state with its own latest
// result, so the last writer wins.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Refresh is one telemetry refresh pass.
type Refresh func(ctx context.Context) error

// Poller schedules periodic refreshes.
type Poller struct {
	interval time.Duration
	logger   *zap.Logger
}

// New creates a poller with the given interval.
func New(interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{interval: interval, logger: logger}
}

// Handle cancels a running poll loop.
type Handle struct {
	scheduler gocron.Scheduler
}

// Stop cancels future invocations and releases the scheduler. In-flight
// refreshes are allowed to finish.
func (h *Handle) Stop() error {
	if err := h.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down poll scheduler: %w", err)
	}
	return nil
}

// Start schedules refresh on the poller's interval and returns the cancel
// handle. Refresh errors are logged and the loop keeps going; a slow
// refresh may still be in flight when the next interval fires.
func (p *Poller) Start(ctx context.Context, refresh Refresh) (*Handle, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create poll scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if err := refresh(ctx); err != nil {
				p.logger.Warn("Telemetry refresh failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule refresh job: %w", err)
	}

	scheduler.Start()
	p.logger.Info("Telemetry poller started", zap.Duration("interval", p.interval))
	return &Handle{scheduler: scheduler}, nil
}
