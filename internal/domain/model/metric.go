// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Metric identifies one of the numeric columns of the regional dataset.
type Metric int

// The closed set of metrics, in dashboard order.
const (
	HospitalizedWithSymptoms Metric = iota
	IntensiveCare
	TotalHospitalized
	HomeIsolation
	TotalCurrentlyPositive
	NewCurrentlyPositive
	DischargedRecovered
	Deceased
	TotalCases
	Tests

	// MetricCount is the size of the closed set.
	MetricCount int = iota
)

// DefaultMetric is preselected by the dashboard.
const DefaultMetric = TotalCases

// metricColumns holds the CSV column name for each metric.
var metricColumns = [MetricCount]string{
	"ricoverati_con_sintomi",
	"terapia_intensiva",
	"totale_ospedalizzati",
	"isolamento_domiciliare",
	"totale_attualmente_positivi",
	"nuovi_attualmente_positivi",
	"dimessi_guariti",
	"deceduti",
	"totale_casi",
	"tamponi",
}

// metricAliases maps column names introduced by later upstream schema
// revisions onto the original columns.
var metricAliases = map[string]Metric{
	"totale_positivi":            TotalCurrentlyPositive,
	"variazione_totale_positivi": NewCurrentlyPositive,
}

// Metrics returns every metric in dashboard order.
func Metrics() []Metric {
	out := make([]Metric, MetricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// Valid reports whether m belongs to the closed set.
func (m Metric) Valid() bool { return m >= 0 && int(m) < MetricCount }

// String returns the CSV column name.
func (m Metric) String() string {
	if !m.Valid() {
		return fmt.Sprintf("metric(%d)", int(m))
	}
	return metricColumns[m]
}

// Label returns the human readable name: first letter upper-cased, the rest
// lower-cased and underscores turned into spaces.
func (m Metric) Label() string {
	return FormatLabel(m.String())
}

// MarshalText encodes the metric as its column name.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMetric, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a column name.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMetric resolves a column name (or a known alias) to a Metric.
func ParseMetric(name string) (Metric, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, col := range metricColumns {
		if col == key {
			return Metric(i), nil
		}
	}
	if m, ok := metricAliases[key]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMetric, name)
}

// FormatLabel turns a snake_case column name into a label such as
// "Totale casi".
func FormatLabel(name string) string {
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	capitalized := strings.ToUpper(lower[:1]) + lower[1:]
	return strings.Join(strings.Split(capitalized, "_"), " ")
}
