package api

import (
	"context"
	"net/http"

	service "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/domain/aggregate"
)

// SchemaDependencies describes the loaded dataset.
type SchemaDependencies interface {
	FilterOptions(ctx context.Context) ([]aggregate.Option, error)
	Schema(ctx context.Context) (service.SchemaInfo, error)
}

// SchemaHandler serves the dataset description and filter options.
type SchemaHandler struct {
	deps SchemaDependencies
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(deps SchemaDependencies) *SchemaHandler {
	return &SchemaHandler{deps: deps}
}

// HandleSchema handles GET /api/schema requests.
func (h *SchemaHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_schema"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	info, err := h.deps.Schema(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleFilters handles GET /api/filters requests.
func (h *SchemaHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_filters"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	opts, err := h.deps.FilterOptions(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"filters": opts})
}
