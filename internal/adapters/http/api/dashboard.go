package api

import (
	"context"
	"net/http"

	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/filter"
)

// DashboardDependencies computes dashboards.
type DashboardDependencies interface {
	Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error)
	Stats(ctx context.Context, state filter.State) (aggregate.Stats, error)
}

// DashboardHandler serves the aggregates for one filter state.
type DashboardHandler struct {
	deps DashboardDependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps DashboardDependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

type dashboardResponse struct {
	Filters   map[string][]string `json:"filters"`
	Stats     aggregate.Stats     `json:"stats"`
	Dashboard aggregate.Dashboard `json:"dashboard"`
}

// HandleDashboard handles GET|POST /api/dashboard requests. GET reads the
// filter state from repeated query keys, POST from a JSON body.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	state, err := parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, err.Error()))
		return
	}
	d, err := h.deps.Dashboard(r.Context(), state)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	st, err := h.deps.Stats(r.Context(), state)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	filters := state.Selections
	if filters == nil {
		filters = map[string][]string{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{Filters: filters, Stats: st, Dashboard: d})
}
