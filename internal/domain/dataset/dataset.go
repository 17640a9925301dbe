// Package dataset holds the canonical dataset: the normalized and derived
// table that every query reads from. A Dataset never changes after Build.
package dataset

import (
	"fmt"
	"time"

	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/internal/domain/table"
)

// Source kinds.
const (
	KindPrimary  = "primary"
	KindSummary  = "summary"
	KindWorkbook = "workbook"
)

// Source describes where the dataset came from.
type Source struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Sheet string `json:"sheet,omitempty"`
}

// Quality is the data-quality report collected while building.
type Quality struct {
	CoercionWarnings map[string]int   `json:"coercion_warnings"`
	NegativeTenure   int              `json:"negative_tenure"`
	Findings         []derive.Finding `json:"findings,omitempty"`
}

// Dataset is the immutable canonical dataset.
type Dataset struct {
	tbl      *table.Table
	source   Source
	loadedAt time.Time
	present  []string
	renames  []schema.Rename
	derived  []string
	warnings []table.CoercionWarning
	quality  Quality
}

// Build runs the raw table through normalization and derivation and returns
// the canonical dataset. raw is not modified.
func Build(raw *table.Table, opts ...Option) (*Dataset, error) {
	if raw == nil {
		return nil, fmt.Errorf("dataset: nil table")
	}
	d := &Dataset{tbl: raw.Clone(), loadedAt: time.Now()}
	for _, opt := range opts {
		opt(d)
	}

	res, err := schema.Normalize(d.tbl)
	if err != nil {
		return nil, err
	}
	findings, err := derive.Apply(d.tbl)
	if err != nil {
		return nil, err
	}

	d.present = res.Present
	d.renames = res.Renames
	d.warnings = res.Warnings
	if d.tbl.Has(schema.TenureGroup) {
		d.derived = []string{schema.TenureGroup}
	}
	d.quality = Quality{CoercionWarnings: res.WarningCounts(), Findings: findings}
	for _, f := range findings {
		if f.Kind == derive.KindNegativeTenure {
			d.quality.NegativeTenure += len(f.Rows)
		}
	}
	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.tbl.Len() }

// Columns returns all column names in order, canonical or not.
func (d *Dataset) Columns() []string { return d.tbl.Columns() }

// Has reports whether column name exists.
func (d *Dataset) Has(name string) bool { return d.tbl.Has(name) }

// Present returns the canonical fields that were found in the source.
func (d *Dataset) Present() []string { return append([]string(nil), d.present...) }

// Renames returns the alias renames applied during normalization.
func (d *Dataset) Renames() []schema.Rename { return append([]schema.Rename(nil), d.renames...) }

// Derived returns the derived columns that were added.
func (d *Dataset) Derived() []string { return append([]string(nil), d.derived...) }

// Warnings returns the individual coercion warnings.
func (d *Dataset) Warnings() []table.CoercionWarning {
	return append([]table.CoercionWarning(nil), d.warnings...)
}

// Source returns the origin of the data.
func (d *Dataset) Source() Source { return d.source }

// LoadedAt returns the build time.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Quality returns the data-quality report.
func (d *Dataset) Quality() Quality {
	q := d.quality
	q.CoercionWarnings = make(map[string]int, len(d.quality.CoercionWarnings))
	for k, v := range d.quality.CoercionWarnings {
		q.CoercionWarnings[k] = v
	}
	return q
}

// Value returns the cell at row for column col; missing when the column is
// absent or row is out of range.
func (d *Dataset) Value(row int, col string) table.Value {
	c, ok := d.tbl.Column(col)
	if !ok || row < 0 || row >= len(c.Values) {
		return table.Missing()
	}
	return c.Values[row]
}

// Text returns the cell rendered as text; ok is false for missing cells.
func (d *Dataset) Text(row int, col string) (string, bool) {
	v := d.Value(row, col)
	if v.IsMissing() {
		return "", false
	}
	return v.String(), true
}

// Number returns the numeric content of the cell.
func (d *Dataset) Number(row int, col string) (float64, bool) {
	return d.Value(row, col).Float()
}

// Record returns one row as a column name to value map.
func (d *Dataset) Record(row int) map[string]any {
	cols := d.tbl.Columns()
	rec := make(map[string]any, len(cols))
	for _, c := range cols {
		rec[c] = d.Value(row, c).Interface()
	}
	return rec
}

// All returns a view over every row.
func (d *Dataset) All() View {
	rows := make([]int, d.Len())
	for i := range rows {
		rows[i] = i
	}
	return View{ds: d, rows: rows}
}
