// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// COVITA_CONFIG, then COVITA_* environment variables.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SourceURL is the regional CSV to load.
	SourceURL string `koanf:"source_url"`

	// FetchTimeoutMS bounds a single download attempt; 0 disables the bound.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// FetchRetries is the number of extra attempts after a transient failure.
	FetchRetries int `koanf:"fetch_retries"`

	// CacheTTLSec expires the cached dataset; 0 keeps it until refreshed.
	CacheTTLSec int `koanf:"cache_ttl_sec"`

	// RefreshIntervalSec runs a background refresh; 0 disables it.
	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	// DefaultRegions is the region preset used when a request names none.
	DefaultRegions []string `koanf:"default_regions"`

	// ChartWidth and ChartHeight size the rendered charts in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		SourceURL:      "https://raw.githubusercontent.com/pcm-dpc/COVID-19/master/dati-regioni/dpc-covid19-ita-regioni.csv",
		FetchTimeoutMS: 60_000,
		DefaultRegions: []string{"Lombardia", "Veneto", "Emilia Romagna", "Trento"},
		ChartWidth:     500,
		ChartHeight:    1000,
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSec as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// RefreshInterval returns RefreshIntervalSec as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SourceURL == "":
		return fmt.Errorf("%w: source_url must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.FetchTimeoutMS < 0:
		return fmt.Errorf("%w: fetch_timeout_ms must not be negative", ErrInvalidConfig)
	case c.FetchRetries < 0:
		return fmt.Errorf("%w: fetch_retries must not be negative", ErrInvalidConfig)
	case c.CacheTTLSec < 0:
		return fmt.Errorf("%w: cache_ttl_sec must not be negative", ErrInvalidConfig)
	case c.RefreshIntervalSec < 0:
		return fmt.Errorf("%w: refresh_interval_sec must not be negative", ErrInvalidConfig)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart size must be positive", ErrInvalidConfig)
	}
	return nil
}
