package service

import (
	"time"

	"github.com/okian/covita/internal/adapters/cache"
	"github.com/okian/covita/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSourceURL sets the CSV address.
func WithSourceURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.sourceURL = url
		}
	}
}

// WithLoader replaces the HTTP source, mostly for tests.
func WithLoader(l cache.Loader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithFetchTimeout bounds one download attempt. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.fetchTimeout = d
		}
	}
}

// WithFetchRetries sets extra attempts after transient fetch failures.
func WithFetchRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.fetchRetries = n
		}
	}
}

// WithCacheTTL expires the cached dataset after d; zero disables expiry.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cacheTTL = d
		}
	}
}

// WithRefreshInterval enables the background refresher.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithDefaultRegions sets the preset used when a request names no region.
func WithDefaultRegions(regions []string) Option {
	return func(s *Service) {
		if regions != nil {
			s.defaultRegions = append([]string(nil), regions...)
		}
	}
}

// WithChartSize sets the canvas size of both charts.
func WithChartSize(width, height int) Option {
	return func(s *Service) {
		if width > 0 && height > 0 {
			s.chartWidth = width
			s.chartHeight = height
		}
	}
}

// WithNotifier receives an event after every successful refresh.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithWarmup loads the dataset in the background on Start.
func WithWarmup(enabled bool) Option {
	return func(s *Service) {
		s.warmup = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
