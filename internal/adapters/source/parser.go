package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/covita/internal/domain/model"
)

// Column names of the regional CSV that are not metrics.
const (
	columnDate   = "data"
	columnRegion = "denominazione_regione"
)

// dateLayouts lists the timestamp formats published upstream over time.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Sentinel kinds for payload parsing; both are reported to callers wrapped
// in model.ErrDataUnavailable.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrMalformedRow  = errors.New("malformed row")
)

// columns maps the fields we read to their index in a row.
type columns struct {
	date    int
	region  int
	metrics [model.MetricCount]int
}

// Parse reads the regional CSV and returns its records in file order. Each
// timestamp is truncated to its calendar day.
func Parse(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty payload", ErrMalformedRow)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	out := make([]model.Record, 0, 4096)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{date: -1, region: -1}
	for i := range cols.metrics {
		cols.metrics[i] = -1
	}
	aliased := make(map[model.Metric]int)

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		switch name {
		case columnDate:
			cols.date = i
			continue
		case columnRegion:
			cols.region = i
			continue
		}
		m, err := model.ParseMetric(name)
		if err != nil {
			continue
		}
		if m.String() == name {
			cols.metrics[m] = i
		} else {
			aliased[m] = i
		}
	}

	for m, i := range aliased {
		if cols.metrics[m] < 0 {
			cols.metrics[m] = i
		}
	}

	if cols.date < 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, columnDate)
	}
	if cols.region < 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, columnRegion)
	}
	for _, m := range model.Metrics() {
		if cols.metrics[m] < 0 {
			return cols, fmt.Errorf("%w: %s", ErrMissingColumn, m)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols columns) (model.Record, error) {
	var rec model.Record
	field := func(i int) (string, error) {
		if i >= len(row) {
			return "", fmt.Errorf("row has %d fields, need %d", len(row), i+1)
		}
		return strings.TrimSpace(row[i]), nil
	}

	rawDate, err := field(cols.date)
	if err != nil {
		return rec, err
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return rec, err
	}
	region, err := field(cols.region)
	if err != nil {
		return rec, err
	}
	rec.Date = date
	rec.Region = region

	for _, m := range model.Metrics() {
		raw, err := field(cols.metrics[m])
		if err != nil {
			return rec, err
		}
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", m, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, fmt.Errorf("%s: non-finite value %q", m, raw)
		}
		rec.Values[m] = v
	}
	return rec, nil
}

// parseDate accepts any of dateLayouts and drops the time of day.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.TruncateToDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}
