// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/adapters/render"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/filter"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Dashboard computes every aggregate for one filter state.
	Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error)

	// Rows pages through the filtered rows.
	Rows(ctx context.Context, state filter.State, offset, limit int) (service.Page, error)

	// Stats returns overall statistics of the filtered rows.
	Stats(ctx context.Context, state filter.State) (aggregate.Stats, error)

	// Departments returns the department summary of the filtered rows.
	Departments(ctx context.Context, state filter.State) ([]aggregate.DepartmentRow, error)
	WriteDepartmentsCSV(ctx context.Context, w io.Writer, state filter.State) error

	// FilterOptions and Schema describe the loaded dataset.
	FilterOptions(ctx context.Context) ([]aggregate.Option, error)
	Schema(ctx context.Context) (service.SchemaInfo, error)

	// RenderChart writes the named chart as PNG.
	RenderChart(ctx context.Context, w io.Writer, name string, state filter.State) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	schemaHandler      *SchemaHandler
	dashboardHandler   *DashboardHandler
	rowsHandler        *RowsHandler
	departmentsHandler *DepartmentsHandler
	chartHandler       *ChartHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		schemaHandler:      NewSchemaHandler(deps),
		dashboardHandler:   NewDashboardHandler(deps),
		rowsHandler:        NewRowsHandler(deps),
		departmentsHandler: NewDepartmentsHandler(deps),
		chartHandler:       NewChartHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/schema", MetricsMiddleware(s.schemaHandler.HandleSchema, "schema"))
	mux.HandleFunc("/api/filters", MetricsMiddleware(s.schemaHandler.HandleFilters, "filters"))
	mux.HandleFunc("/api/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/api/rows", MetricsMiddleware(s.rowsHandler.HandleRows, "rows"))
	mux.HandleFunc("/api/departments", MetricsMiddleware(s.departmentsHandler.HandleDepartments, "departments"))
	mux.HandleFunc("/charts/", MetricsMiddleware(s.chartHandler.HandleChart, "charts"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream errors to a status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, filter.ErrUnknownDimension):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, render.ErrUnknownChart):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, render.ErrDisabled), errors.Is(err, service.ErrMissingColumn):
		writeError(w, http.StatusNotFound, "column_missing", Wrap(op, err))
	case errors.Is(err, render.ErrNotEnoughData):
		writeError(w, http.StatusUnprocessableEntity, "not_enough_data", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.NotFound(w, r)
	return false
}
