package api

import (
	"context"
	"net/http"

	"github.com/okian/covita/internal/domain/model"
)

// OptionsDependencies defines what the options handler reads.
type OptionsDependencies interface {
	Regions(ctx context.Context) ([]string, error)
	DefaultRegions() []string
}

type namedOption struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Metrics        []namedOption `json:"metrics"`
	DefaultMetric  model.Metric  `json:"default_metric"`
	Modes          []namedOption `json:"modes"`
	Scales         []model.Scale `json:"scales"`
	Regions        []string      `json:"regions"`
	DefaultRegions []string      `json:"default_regions"`
}

// OptionsHandler serves the choices behind every dashboard control.
type OptionsHandler struct {
	deps OptionsDependencies
}

// NewOptionsHandler creates a new options handler.
func NewOptionsHandler(deps OptionsDependencies) *OptionsHandler {
	return &OptionsHandler{deps: deps}
}

// HandleOptions handles GET /api/options requests.
func (h *OptionsHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_options"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	regions, err := h.deps.Regions(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	metrics := make([]namedOption, 0, model.MetricCount)
	for _, m := range model.Metrics() {
		metrics = append(metrics, namedOption{Name: m.String(), Label: m.Label()})
	}

	writeJSON(w, http.StatusOK, optionsResponse{
		Metrics:       metrics,
		DefaultMetric: model.DefaultMetric,
		Modes: []namedOption{
			{Name: string(model.Cumulative), Label: "totale"},
			{Name: string(model.DailyChange), Label: "giorno per giorno"},
		},
		Scales:         []model.Scale{model.Linear, model.SymLog},
		Regions:        regions,
		DefaultRegions: h.deps.DefaultRegions(),
	})
}
