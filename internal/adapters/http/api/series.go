package api

import (
	"context"
	"net/http"

	"github.com/okian/covita/internal/domain/model"
)

// SeriesDependencies defines what the series handlers read.
type SeriesDependencies interface {
	DefaultRegions() []string
	National(ctx context.Context, req model.Request) ([]model.Point, string, error)
	ByRegion(ctx context.Context, req model.Request) ([]model.RegionPoint, string, error)
}

type nationalResponse struct {
	DatasetID string        `json:"dataset_id"`
	Metric    model.Metric  `json:"metric"`
	Mode      model.Mode    `json:"mode"`
	Points    []model.Point `json:"points"`
}

type regionalResponse struct {
	DatasetID string              `json:"dataset_id"`
	Metric    model.Metric        `json:"metric"`
	Mode      model.Mode          `json:"mode"`
	Regions   []string            `json:"regions"`
	Points    []model.RegionPoint `json:"points"`
}

// SeriesHandler serves raw aggregated series.
type SeriesHandler struct {
	deps SeriesDependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps SeriesDependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

// HandleNational handles GET /api/series/national requests.
func (h *SeriesHandler) HandleNational(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_national"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	req, err := parseRequest(r, nil)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	points, id, err := h.deps.National(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if points == nil {
		points = []model.Point{}
	}
	writeJSON(w, http.StatusOK, nationalResponse{DatasetID: id, Metric: req.Metric, Mode: req.Mode, Points: points})
}

// HandleRegions handles GET /api/series/regions requests.
func (h *SeriesHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_regions"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	req, err := parseRequest(r, h.deps.DefaultRegions())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	points, id, err := h.deps.ByRegion(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if points == nil {
		points = []model.RegionPoint{}
	}
	regions := req.Regions
	if regions == nil {
		regions = []string{}
	}
	writeJSON(w, http.StatusOK, regionalResponse{DatasetID: id, Metric: req.Metric, Mode: req.Mode, Regions: regions, Points: points})
}
