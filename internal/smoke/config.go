package smoke

import (
	"time"

	"github.com/okian/covita/internal/domain/model"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Metrics []string      // Metrics to check; empty means all
	Regions []string      // Regions to check; empty means every region the service lists
	Workers int           // Concurrent metric checks
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every check
}

// Violation is one broken property.
type Violation struct {
	Metric   string `json:"metric"`
	Series   string `json:"series"`
	Property string `json:"property"`
	Detail   string `json:"detail"`
}

// Report summarizes a smoke run.
type Report struct {
	DatasetID      string
	MetricsChecked int
	NationalPoints int
	RegionalPoints int
	Violations     []Violation
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Failed reports whether any property was violated.
func (r *Report) Failed() bool {
	return len(r.Violations) > 0
}

type optionsResponse struct {
	Metrics []struct {
		Name string `json:"name"`
	} `json:"metrics"`
	Regions []string `json:"regions"`
}

type nationalResponse struct {
	DatasetID string        `json:"dataset_id"`
	Points    []model.Point `json:"points"`
}

type regionalResponse struct {
	DatasetID string              `json:"dataset_id"`
	Points    []model.RegionPoint `json:"points"`
}
