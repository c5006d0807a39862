package model

import "errors"

// Sentinel kinds shared across layers. Callers match them with errors.Is.
var (
	// ErrDataUnavailable reports a failed fetch or an unparsable payload.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInvalidMetric reports a metric outside the closed set.
	ErrInvalidMetric = errors.New("invalid metric")
	// ErrInvalidMode reports an unknown view mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidScale reports an unknown axis scale.
	ErrInvalidScale = errors.New("invalid scale")
)
