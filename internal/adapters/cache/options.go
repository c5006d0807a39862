package cache

import (
	"time"

	"github.com/okian/covita/pkg/logger"
)

// Option applies a configuration option to the DatasetCache.
type Option func(*DatasetCache)

// WithTTL makes Get reload once the snapshot is older than ttl. Zero keeps
// the snapshot until Refresh or Invalidate is called.
func WithTTL(ttl time.Duration) Option {
	return func(c *DatasetCache) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *DatasetCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *DatasetCache) {
		if l != nil {
			c.logger = l
		}
	}
}
