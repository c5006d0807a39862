package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/covita/internal/domain/model"
)

// RefreshDependencies defines what the refresh handler calls.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (*model.Dataset, error)
	Invalidate(ctx context.Context) error
}

type datasetInfo struct {
	DatasetID string    `json:"dataset_id"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Records   int       `json:"records"`
	Regions   int       `json:"regions"`
	FirstDate string    `json:"first_date,omitempty"`
	LastDate  string    `json:"last_date,omitempty"`
}

// RefreshHandler forces a new fetch of the dataset.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleInvalidate handles DELETE /api/cache requests. The next query loads
// the dataset again.
func (h *RefreshHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_cache"
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}

	if err := h.deps.Invalidate(r.Context()); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh handles POST /api/refresh requests.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	ds, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	info := datasetInfo{
		DatasetID: ds.ID,
		Source:    ds.Source,
		FetchedAt: ds.FetchedAt,
		Records:   ds.Len(),
		Regions:   len(ds.Regions()),
	}
	if first, last, ok := ds.DateRange(); ok {
		info.FirstDate = first.Format(model.DateLayout)
		info.LastDate = last.Format(model.DateLayout)
	}
	writeJSON(w, http.StatusOK, info)
}
