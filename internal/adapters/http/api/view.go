package api

import (
	"context"
	"net/http"

	"github.com/okian/covita/internal/domain/model"
	"github.com/okian/covita/internal/domain/view"
)

// ViewDependencies defines what the view handler reads.
type ViewDependencies interface {
	DefaultRegions() []string
	View(ctx context.Context, req model.Request, opts view.Options) (view.View, error)
}

// ViewHandler serves render instructions for the dashboard.
type ViewHandler struct {
	deps ViewDependencies
}

// NewViewHandler creates a new view handler.
func NewViewHandler(deps ViewDependencies) *ViewHandler {
	return &ViewHandler{deps: deps}
}

// HandleView handles GET /api/view?metric=&mode=&scale=&region= requests.
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_view"
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	v, err := buildView(r, h.deps)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func buildView(r *http.Request, deps ViewDependencies) (view.View, error) {
	req, err := parseRequest(r, deps.DefaultRegions())
	if err != nil {
		return view.View{}, err
	}
	scale, err := parseScale(r)
	if err != nil {
		return view.View{}, err
	}
	return deps.View(r.Context(), req, view.Options{Scale: scale})
}
