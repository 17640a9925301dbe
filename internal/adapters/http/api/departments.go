package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/filter"
)

// DepartmentsDependencies builds the department summary.
type DepartmentsDependencies interface {
	Departments(ctx context.Context, state filter.State) ([]aggregate.DepartmentRow, error)
	WriteDepartmentsCSV(ctx context.Context, w io.Writer, state filter.State) error
}

// DepartmentsHandler serves the department summary.
type DepartmentsHandler struct {
	deps DepartmentsDependencies
}

// NewDepartmentsHandler creates a new departments handler.
func NewDepartmentsHandler(deps DepartmentsDependencies) *DepartmentsHandler {
	return &DepartmentsHandler{deps: deps}
}

// HandleDepartments handles GET /api/departments requests. format=csv returns
// the summary in the department summary file layout.
func (h *DepartmentsHandler) HandleDepartments(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_departments"
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	state, err := parseState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, err.Error()))
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		rows, err := h.deps.Departments(r.Context(), state)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		if rows == nil {
			rows = []aggregate.DepartmentRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"departments": rows})
	case "csv":
		var buf bytes.Buffer
		if err := h.deps.WriteDepartmentsCSV(r.Context(), &buf, state); err != nil {
			writeFailure(w, op, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="department_summary.csv"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest, "format must be json or csv"))
	}
}
