package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/okian/covita/internal/adapters/render"
	"github.com/okian/covita/internal/domain/view"
)

// ChartHandler serves the dashboard charts as PNG images.
type ChartHandler struct {
	deps ViewDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ViewDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleNational handles GET /api/chart/national.png requests.
func (h *ChartHandler) HandleNational(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get_national_chart", func(buf *bytes.Buffer, v view.View) error {
		return render.National(buf, v.National)
	})
}

// HandleRegions handles GET /api/chart/regions.png requests.
func (h *ChartHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get_regions_chart", func(buf *bytes.Buffer, v view.View) error {
		return render.Regional(buf, v.Regional)
	})
}

func (h *ChartHandler) serve(w http.ResponseWriter, r *http.Request, op string, draw func(*bytes.Buffer, view.View) error) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	v, err := buildView(r, h.deps)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	// Render fully before writing so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := draw(&buf, v); err != nil {
		writeFailure(w, op, WrapKind(op, ErrRenderFailed, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-cache")
	if v.DatasetID != "" {
		w.Header().Set("ETag", strconv.Quote(v.DatasetID))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
