// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Regions lists the regions present in the dataset.
	Regions(ctx context.Context) ([]string, error)
	// DefaultRegions is the preset used when a request names no region.
	DefaultRegions() []string

	// View builds the render instructions for one dashboard state.
	View(ctx context.Context, req model.Request, opts view.Options) (view.View, error)
	// National and ByRegion return a series and the dataset ID it came from.
	National(ctx context.Context, req model.Request) ([]model.Point, string, error)
	ByRegion(ctx context.Context, req model.Request) ([]model.RegionPoint, string, error)

	// Refresh fetches the dataset again.
	Refresh(ctx context.Context) (*model.Dataset, error)
	// Invalidate drops the cached dataset.
	Invalidate(ctx context.Context) error
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	optionsHandler *OptionsHandler
	viewHandler    *ViewHandler
	seriesHandler  *SeriesHandler
	chartHandler   *ChartHandler
	refreshHandler *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		optionsHandler: NewOptionsHandler(deps),
		viewHandler:    NewViewHandler(deps),
		seriesHandler:  NewSeriesHandler(deps),
		chartHandler:   NewChartHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/options", MetricsMiddleware(s.optionsHandler.HandleOptions, "options"))
	mux.HandleFunc("/api/view", MetricsMiddleware(s.viewHandler.HandleView, "view"))
	mux.HandleFunc("/api/series/national", MetricsMiddleware(s.seriesHandler.HandleNational, "series_national"))
	mux.HandleFunc("/api/series/regions", MetricsMiddleware(s.seriesHandler.HandleRegions, "series_regions"))
	mux.HandleFunc("/api/chart/national.png", MetricsMiddleware(s.chartHandler.HandleNational, "chart_national"))
	mux.HandleFunc("/api/chart/regions.png", MetricsMiddleware(s.chartHandler.HandleRegions, "chart_regions"))
	mux.HandleFunc("/api/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/api/cache", MetricsMiddleware(s.refreshHandler.HandleInvalidate, "cache"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v fully before writing so an encode failure can still
// become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Code: "internal_error", Message: fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain errors onto status codes.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidMetric),
		errors.Is(err, model.ErrInvalidMode),
		errors.Is(err, model.ErrInvalidScale):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, model.ErrDataUnavailable):
		writeError(w, http.StatusServiceUnavailable, "data_unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, ErrRenderFailed):
		writeError(w, http.StatusInternalServerError, "render_failed", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}
