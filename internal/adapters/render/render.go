// Package render draws the dashboard charts as PNG images.
package render

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
	"github.com/okian/covita/pkg/metrics"
)

const (
	dayLayout   = "01-02"
	nationalKey = "Italia"
	halfDay     = 12 * time.Hour
)

// invisible is a non-zero transparent color; go-chart replaces zero colors
// with defaults.
var invisible = drawing.ColorWhite.WithAlpha(0) //nolint:gochecknoglobals // constant color

// National writes the national chart to w.
func National(w io.Writer, c view.NationalChart) error {
	times := make([]time.Time, len(c.Points))
	values := make([]float64, len(c.Points))
	for i, p := range c.Points {
		times[i] = p.Date
		values[i] = p.Value
	}
	lines := []line{{name: nationalKey, times: times, values: values}}
	return draw(w, "national", c.Chart, lines, false)
}

// Regional writes the per-region chart to w, one colored line per region in
// order of first appearance.
func Regional(w io.Writer, c view.RegionalChart) error {
	var lines []line
	index := map[string]int{}
	for _, p := range c.Points {
		i, ok := index[p.Region]
		if !ok {
			i = len(lines)
			index[p.Region] = i
			lines = append(lines, line{name: p.Region})
		}
		lines[i].times = append(lines[i].times, p.Date)
		lines[i].values = append(lines[i].values, p.Value)
	}
	return draw(w, "regions", c.Chart, lines, true)
}

type line struct {
	name   string
	times  []time.Time
	values []float64
}

func draw(w io.Writer, key string, enc view.Chart, lines []line, legend bool) error {
	start := time.Now()
	ax := axis{scale: enc.Scale}

	series := make([]chart.Series, 0, len(lines)+1)
	var first, last time.Time
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, l := range lines {
		if len(l.times) == 0 {
			continue
		}
		ys := make([]float64, len(l.values))
		for j, v := range l.values {
			ys[j] = ax.project(v)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		for _, t := range l.times {
			if first.IsZero() || t.Before(first) {
				first = t
			}
			if t.After(last) {
				last = t
			}
		}
		color := chart.GetDefaultColor(i)
		series = append(series, chart.TimeSeries{
			Name:    l.name,
			XValues: l.times,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	empty := len(series) == 0
	if empty {
		// Nothing selected: draw the axes over an invisible placeholder.
		first = model.TruncateToDay(time.Now())
		last = first
		lo, hi = 0, 1
		series = append(series, chart.TimeSeries{
			XValues: []time.Time{first.Add(-halfDay), last.Add(halfDay)},
			YValues: []float64{0, ax.project(1)},
			Style:   chart.Style{StrokeColor: invisible, DotColor: invisible},
		})
		legend = false
	}
	if lo > 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}

	ticks := ax.ticks(lo, hi)
	yRange := &chart.ContinuousRange{Min: ticks[0].Value, Max: ticks[len(ticks)-1].Value}
	xRange := &chart.ContinuousRange{
		Min: chart.TimeToFloat64(first.Add(-halfDay)),
		Max: chart.TimeToFloat64(last.Add(halfDay)),
	}

	ch := chart.Chart{
		Title:      enc.Title,
		Width:      enc.Width,
		Height:     enc.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           enc.XTitle,
			ValueFormatter: formatDay,
			Range:          xRange,
		},
		YAxis: chart.YAxis{
			Name:  enc.YTitle,
			Range: yRange,
			Ticks: ticks,
		},
		Series: series,
	}
	if legend {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, key, err)
	}
	metrics.RecordChartRender(key, string(enc.Scale), float64(time.Since(start).Milliseconds()))
	return nil
}

// formatDay labels x ticks with month and day.
func formatDay(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(dayLayout)
	case float64:
		return time.Unix(0, int64(t)).UTC().Format(dayLayout)
	}
	return ""
}
