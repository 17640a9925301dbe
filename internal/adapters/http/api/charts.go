package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/okian/castle/internal/domain/filter"
)

const chartPrefix = "/charts/"

// ChartDependencies renders charts.
type ChartDependencies interface {
	RenderChart(ctx context.Context, w io.Writer, name string, state filter.State) error
}

// ChartHandler serves rendered PNG charts.
type ChartHandler struct {
	deps ChartDependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps ChartDependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

// HandleChart handles GET /charts/{name}.png requests.
func (h *ChartHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_chart"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	name, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, chartPrefix), ".png")
	if !ok || name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound, r.URL.Path))
		return
	}
	state, err := parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := h.deps.RenderChart(r.Context(), &buf, name, state); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
