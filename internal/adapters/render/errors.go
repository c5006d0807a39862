package render

import "errors"

var (
	// ErrRender wraps failures of the chart library.
	ErrRender = errors.New("render chart failed")
)
