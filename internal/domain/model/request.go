package model

import (
	"fmt"
	"strings"
)

// Mode selects between running totals and day-over-day changes.
type Mode string

const (
	Cumulative  Mode = "cumulative"
	DailyChange Mode = "daily-change"
)

// ParseMode accepts the canonical names and the dashboard labels
// "totale" and "giorno per giorno". An empty string means Cumulative.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Cumulative), "totale":
		return Cumulative, nil
	case string(DailyChange), "daily", "giorno per giorno", "giorno-per-giorno":
		return DailyChange, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == Cumulative || m == DailyChange }

// Scale selects the y axis transform of a chart.
type Scale string

const (
	Linear Scale = "linear"
	SymLog Scale = "symlog"
)

// ParseScale accepts "linear", "symlog" and "log". An empty string means
// Linear.
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Linear):
		return Linear, nil
	case string(SymLog), "log", "symmetric-log":
		return SymLog, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScale, s)
	}
}

// Request holds the view parameters chosen by the user.
type Request struct {
	Metric  Metric
	Mode    Mode
	Regions []string // empty selects no region
}

// Validate fails fast on a metric or mode outside the closed sets.
func (r Request) Validate() error {
	if !r.Metric.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMetric, int(r.Metric))
	}
	if !r.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, string(r.Mode))
	}
	return nil
}
