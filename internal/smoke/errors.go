package smoke

import "errors"

// Error constants.
var (
	ErrUnhealthy  = errors.New("service is not healthy")
	ErrRequest    = errors.New("request failed")
	ErrViolations = errors.New("series properties violated")
)
