// Package refresher reloads the cached dataset on a fixed period.
package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
	"github.com/okian/covita/pkg/metrics"
)

const (
	defaultInterval = 6 * time.Hour
	triggerSchedule = "schedule"
)

// Refresher replaces the cached dataset with a new snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*model.Dataset, error)
}

// Worker calls Refresh every interval until stopped. A failed refresh is
// logged and the next tick tries again.
type Worker struct {
	target    Refresher
	name      string
	interval  time.Duration
	onRefresh func(*model.Dataset)

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a Worker refreshing target.
func New(target Refresher, opts ...Option) *Worker {
	w := &Worker{
		target:   target,
		name:     "refresher",
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("refresher"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Interval returns the refresh period.
func (w *Worker) Interval() time.Duration { return w.interval }

// Run starts the refresh loop. It returns when ctx is done or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "refresher started",
		logger.String("name", w.name),
		logger.Duration("interval", w.interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// Shutdown stops the loop and waits for it to exit.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) tick(ctx context.Context) {
	start := time.Now()
	ds, err := w.target.Refresh(ctx)
	if err != nil {
		metrics.RecordDatasetRefresh(triggerSchedule, "error")
		metrics.RecordErrorLatency("refresher", "refresh_failed", float64(time.Since(start).Milliseconds()))
		w.logger.Warn(ctx, "scheduled refresh failed; keeping previous dataset", logger.Error(err))
		return
	}

	metrics.RecordDatasetRefresh(triggerSchedule, "ok")
	w.logger.Debug(ctx, "scheduled refresh done",
		logger.String("dataset_id", ds.ID),
		logger.Duration("elapsed", time.Since(start)),
	)
	if w.onRefresh != nil {
		w.onRefresh(ds)
	}
}
