package api

import (
	"context"
	"net/http"

	service "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/domain/filter"
)

// RowsDependencies pages through filtered rows.
type RowsDependencies interface {
	Rows(ctx context.Context, state filter.State, offset, limit int) (service.Page, error)
}

// RowsHandler handles row listing requests.
type RowsHandler struct {
	deps RowsDependencies
}

// NewRowsHandler creates a new rows handler.
func NewRowsHandler(deps RowsDependencies) *RowsHandler {
	return &RowsHandler{deps: deps}
}

// HandleRows handles GET /api/rows?offset=N&limit=M requests. The limit is
// capped by the service.
func (h *RowsHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rows"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, err.Error()))
		return
	}
	state, err := parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, err.Error()))
		return
	}
	p, err := h.deps.Rows(r.Context(), state, page.Offset, page.Limit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
