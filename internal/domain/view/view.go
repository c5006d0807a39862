// Package view builds render instructions for one dashboard interaction.
//
// Build is the event handler the dashboard calls whenever a control
// changes: it takes the current request and returns everything a chart
// layer needs, without touching any shared state.
package view

import (
	"github.com/okian/covita/internal/domain/aggregate"
	"github.com/okian/covita/internal/domain/model"
)

// Default canvas size of both charts.
const (
	DefaultWidth  = 500
	DefaultHeight = 1000
)

// Dashboard copy.
const (
	headingCumulative = "Dato totale"
	headingDaily      = "Variazione giorno-per-giorno"
	titleNational     = "Trend in tutta Italia"
	titleRegional     = "Divisione per regione"
	titleXAxis        = "Mese e giorno"
	titleDate         = "Data"
	titleRegion       = "Regione"
)

// Options carries render parameters that do not affect aggregation.
type Options struct {
	Scale  model.Scale
	Width  int
	Height int
}

// Tooltip describes one field shown when hovering a point.
type Tooltip struct {
	Field    string `json:"field"`
	Title    string `json:"title"`
	Temporal bool   `json:"temporal,omitempty"`
}

// Chart holds the encoding of a line chart with point markers.
type Chart struct {
	Title    string      `json:"title"`
	XTitle   string      `json:"x_title"`
	YTitle   string      `json:"y_title"`
	Scale    model.Scale `json:"scale"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	ColorBy  string      `json:"color_by,omitempty"`
	Tooltips []Tooltip   `json:"tooltips"`
}

// NationalChart is the chart of national totals.
type NationalChart struct {
	Chart
	Points []model.Point `json:"points"`
}

// RegionalChart is the chart of per-region series.
type RegionalChart struct {
	Chart
	Points []model.RegionPoint `json:"points"`
}

// View is the full set of render instructions for one request.
type View struct {
	DatasetID      string        `json:"dataset_id"`
	Metric         model.Metric  `json:"metric"`
	MetricLabel    string        `json:"metric_label"`
	Mode           model.Mode    `json:"mode"`
	Regions        []string      `json:"regions"`
	Heading        string        `json:"heading"`
	National       NationalChart `json:"national"`
	Regional       RegionalChart `json:"regional"`
	EmptySelection bool          `json:"empty_selection"`
}

// Build aggregates ds for req and wraps the series in chart encodings.
func Build(ds *model.Dataset, req model.Request, opts Options) (View, error) {
	if err := req.Validate(); err != nil {
		return View{}, err
	}
	opts = withDefaults(opts)

	national, err := aggregate.National(ds, req)
	if err != nil {
		return View{}, err
	}
	regional, err := aggregate.ByRegion(ds, req)
	if err != nil {
		return View{}, err
	}

	label := req.Metric.Label()
	regions := append([]string{}, req.Regions...)

	v := View{
		Metric:      req.Metric,
		MetricLabel: label,
		Mode:        req.Mode,
		Regions:     regions,
		Heading:     Heading(req.Mode),
		National: NationalChart{
			Chart:  newChart(titleNational, label, opts, nationalTooltips(req.Mode, label)),
			Points: national,
		},
		Regional: RegionalChart{
			Chart:  newChart(titleRegional, label, opts, regionalTooltips(req.Mode, label)),
			Points: regional,
		},
		EmptySelection: len(regional) == 0,
	}
	v.Regional.ColorBy = "region"
	if ds != nil {
		v.DatasetID = ds.ID
	}
	return v, nil
}

// Heading returns the section heading for a mode.
func Heading(mode model.Mode) string {
	if mode == model.DailyChange {
		return headingDaily
	}
	return headingCumulative
}

func withDefaults(opts Options) Options {
	if opts.Scale == "" {
		opts.Scale = model.Linear
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return opts
}

func newChart(title, yTitle string, opts Options, tips []Tooltip) Chart {
	return Chart{
		Title:    title,
		XTitle:   titleXAxis,
		YTitle:   yTitle,
		Scale:    opts.Scale,
		Width:    opts.Width,
		Height:   opts.Height,
		Tooltips: tips,
	}
}

func nationalTooltips(_ model.Mode, label string) []Tooltip {
	return []Tooltip{
		{Field: "value", Title: label},
		{Field: "date", Title: titleDate, Temporal: true},
	}
}

func regionalTooltips(mode model.Mode, label string) []Tooltip {
	if mode == model.DailyChange {
		return []Tooltip{
			{Field: "region", Title: titleRegion},
			{Field: "value", Title: label + " giorno-per-giorno"},
			{Field: "total", Title: label + " totale"},
			{Field: "date", Title: titleDate, Temporal: true},
		}
	}
	return []Tooltip{
		{Field: "region", Title: titleRegion},
		{Field: "value", Title: label},
		{Field: "date", Title: titleDate, Temporal: true},
	}
}
