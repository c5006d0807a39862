package refresher

import (
	"time"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithInterval sets the period between refreshes.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithOnRefresh registers a callback run after every successful refresh.
func WithOnRefresh(fn func(*model.Dataset)) Option {
	return func(w *Worker) {
		w.onRefresh = fn
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
