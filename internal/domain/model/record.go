package model

import "time"

// Record is one row of the regional dataset.
type Record struct {
	Date   time.Time // calendar day, UTC midnight
	Region string    // denominazione_regione
	Values [MetricCount]float64
}

// Value returns the record's value for m, or 0 for an invalid metric.
func (r Record) Value(m Metric) float64 {
	if !m.Valid() {
		return 0
	}
	return r.Values[m]
}

// Dataset is an immutable snapshot of the upstream table.
type Dataset struct {
	ID        string    // unique per successful fetch
	Source    string    // URL the snapshot was fetched from
	FetchedAt time.Time // when the fetch completed
	Records   []Record  // in upstream order
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Regions returns the distinct region names in order of first appearance.
func (d *Dataset) Regions() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, 32)
	for _, r := range d.Records {
		if _, ok := seen[r.Region]; ok {
			continue
		}
		seen[r.Region] = struct{}{}
		out = append(out, r.Region)
	}
	return out
}

// DateRange returns the first and last calendar day in the dataset.
// ok is false when the dataset is empty.
func (d *Dataset) DateRange() (first, last time.Time, ok bool) {
	if d.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = d.Records[0].Date, d.Records[0].Date
	for _, r := range d.Records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first, last, true
}

// TruncateToDay drops the time of day, keeping the calendar date of t as
// written, and returns it at UTC midnight.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
