package source

import (
	"net/http"
	"time"

	"github.com/okian/covita/pkg/logger"
)

// Option applies a configuration option to the HTTPSource.
type Option func(*HTTPSource)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		if d >= 0 {
			s.timeout = &d
		}
	}
}

// WithRetries sets how many times a failed fetch is retried.
func WithRetries(n int) Option {
	return func(s *HTTPSource) {
		if n >= 0 {
			s.retries = uint64(n)
		}
	}
}

// WithBackoff sets the retry interval bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(s *HTTPSource) {
		if initial > 0 && max >= initial {
			s.initialInterval = initial
			s.maxInterval = max
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *HTTPSource) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *HTTPSource) {
		if l != nil {
			s.logger = l
		}
	}
}
