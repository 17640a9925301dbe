package dataset

import "github.com/okian/castle/internal/domain/table"

// View is a read-only subset of a dataset expressed as base row indices.
// Views never copy or modify the underlying data.
type View struct {
	ds   *Dataset
	rows []int
}

// Dataset returns the base dataset.
func (v View) Dataset() *Dataset { return v.ds }

// Len returns the number of rows in the view.
func (v View) Len() int { return len(v.rows) }

// Row returns the base row index of the i-th row of the view.
func (v View) Row(i int) int { return v.rows[i] }

// Rows returns a copy of the base row indices.
func (v View) Rows() []int { return append([]int(nil), v.rows...) }

// Value returns the cell of the i-th view row.
func (v View) Value(i int, col string) table.Value { return v.ds.Value(v.rows[i], col) }

// Where returns the rows of v for which keep returns true. keep receives base
// row indices.
func (v View) Where(keep func(row int) bool) View {
	out := make([]int, 0, len(v.rows))
	for _, r := range v.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return View{ds: v.ds, rows: out}
}

// Slice returns at most limit rows starting at offset.
func (v View) Slice(offset, limit int) View {
	if offset < 0 {
		offset = 0
	}
	if offset > len(v.rows) {
		offset = len(v.rows)
	}
	end := len(v.rows)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return View{ds: v.ds, rows: v.rows[offset:end:end]}
}
