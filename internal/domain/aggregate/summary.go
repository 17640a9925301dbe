package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/schema"
)

// Summary describes the numeric cells of one column.
type Summary struct {
	N    int      `json:"n"`
	Sum  float64  `json:"sum"`
	Mean *float64 `json:"mean"`
}

// Measure summarizes the numeric cells of col in v. nil when col is absent.
func Measure(v dataset.View, col string) *Summary {
	ds := v.Dataset()
	if ds == nil || !ds.Has(col) {
		return nil
	}
	s := &Summary{}
	for i := 0; i < v.Len(); i++ {
		if f, ok := ds.Number(v.Row(i), col); ok {
			s.N++
			s.Sum += f
		}
	}
	if s.N > 0 {
		m := s.Sum / float64(s.N)
		s.Mean = &m
	}
	return s
}

// Tally is a row count with its share of the total.
type Tally struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Stats are the overall statistics of a view.
type Stats struct {
	Total       int      `json:"total"`
	Salary      *Summary `json:"salary"`
	Output      *Summary `json:"output"`
	Senior      *Tally   `json:"senior"`
	Experienced *Tally   `json:"experienced"`
}

// Overall computes the overall statistics of v.
func Overall(v dataset.View, cfg Config) Stats {
	st := Stats{
		Total:  v.Len(),
		Salary: Measure(v, schema.Salary),
		Output: Measure(v, schema.Output),
	}
	ds := v.Dataset()
	if ds != nil && ds.Has(schema.Tenure) {
		st.Senior = tally(v, cfg.SeniorTenure)
		st.Experienced = tally(v, cfg.ExperiencedTenure)
	}
	return st
}

func tally(v dataset.View, threshold float64) *Tally {
	ds := v.Dataset()
	t := &Tally{}
	for i := 0; i < v.Len(); i++ {
		if f, ok := ds.Number(v.Row(i), schema.Tenure); ok && f >= threshold {
			t.Count++
		}
	}
	if v.Len() > 0 {
		t.Percent = 100 * float64(t.Count) / float64(v.Len())
	}
	return t
}

// DepartmentRow is one line of the department summary.
type DepartmentRow struct {
	Department  string  `json:"department"`
	Total       int     `json:"total_retained"`
	Highlighted int     `json:"highlighted_retained"`
	Senior      int     `json:"senior"`
	TopRated    int     `json:"top_rated"`
	TotalSalary float64 `json:"total_salary"`
	TotalOutput float64 `json:"total_output"`
}

// Departments groups v by department, sorted by name. Rows without a
// department are left out. nil when the department column is absent.
func Departments(v dataset.View, cfg Config) []DepartmentRow {
	ds := v.Dataset()
	if ds == nil || !ds.Has(schema.Department) {
		return nil
	}
	byDept := make(map[string]*DepartmentRow)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		dept, ok := ds.Text(row, schema.Department)
		if !ok {
			continue
		}
		d := byDept[dept]
		if d == nil {
			d = &DepartmentRow{Department: dept}
			byDept[dept] = d
		}
		d.Total++
		if c, ok := ds.Text(row, schema.CompanyOrigin); ok && c == cfg.Highlight {
			d.Highlighted++
		}
		if t, ok := ds.Number(row, schema.Tenure); ok && t >= cfg.SeniorTenure {
			d.Senior++
		}
		if r, ok := ds.Text(row, schema.WorkRating); ok && r == cfg.TopRating {
			d.TopRated++
		}
		if s, ok := ds.Number(row, schema.Salary); ok {
			d.TotalSalary += s
		}
		if o, ok := ds.Number(row, schema.Output); ok {
			d.TotalOutput += o
		}
	}

	out := make([]DepartmentRow, 0, len(byDept))
	for _, d := range byDept {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// DepartmentHeader returns the CSV header of the department summary.
func DepartmentHeader(cfg Config) []string {
	return []string{
		schema.Department,
		"TotalRetained",
		cfg.Highlight + "Retained",
		"Tenure" + formatNumber(cfg.SeniorTenure) + "+",
		cfg.TopRating + "Rated",
		"TotalSalary",
		"TotalOutput",
	}
}

// WriteDepartmentsCSV writes rows in the department summary file layout.
func WriteDepartmentsCSV(w io.Writer, rows []DepartmentRow, cfg Config) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DepartmentHeader(cfg)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Department,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Highlighted),
			strconv.Itoa(r.Senior),
			strconv.Itoa(r.TopRated),
			formatNumber(r.TotalSalary),
			formatNumber(r.TotalOutput),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", r.Department, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
