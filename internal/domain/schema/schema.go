// Package schema maps raw, inconsistently named columns onto the canonical
// workforce schema.
package schema

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/okian/castle/internal/domain/table"
)

// Canonical field names.
const (
	Department    = "Department"
	Tenure        = "Tenure"
	TenureGroup   = "TenureGroup"
	Output        = "output_est"
	CompanyOrigin = "Company_Origin"
	WorkRating    = "Work_Rating"
	Salary        = "Salary"
)

// Field is a canonical field together with the raw names it is accepted under.
type Field struct {
	Name    string
	Aliases []string
	Numeric bool
}

// Fields lists the canonical fields in resolution order. Each alias list
// starts with the canonical name itself.
var Fields = []Field{
	{Name: Tenure, Aliases: []string{"Tenure", "Tenure_Years", "Tenure (Years)"}, Numeric: true},
	{Name: Output, Aliases: []string{"output_est", "Output_Estimated", "Estimated_Output", "Output"}, Numeric: true},
	{Name: CompanyOrigin, Aliases: []string{"Company_Origin", "Company", "Employer"}},
	{Name: WorkRating, Aliases: []string{"Work_Rating", "Rating", "Performance_Rating", "Performance"}},
	{Name: Salary, Aliases: []string{"Salary", "Annual_Salary", "Base_Salary"}, Numeric: true},
	{Name: Department, Aliases: []string{"Department", "Dept"}},
}

// Resolve returns the first available column that case-insensitively equals
// a candidate, trying candidates in preference order and columns in table
// order.
func Resolve(available, candidates []string) (string, bool) {
	for _, cand := range candidates {
		for _, col := range available {
			if strings.EqualFold(col, cand) {
				return col, true
			}
		}
	}
	return "", false
}

// CleanName trims a raw header and replaces internal spaces with underscores.
// A leading byte order mark is dropped and the name is NFC normalized so that
// visually equal headers compare equal.
func CleanName(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "_")
}

// CleanHeader cleans every name. Names that collide after cleaning get a
// numeric suffix (".1", ".2", ...) in order of appearance.
func CleanHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, r := range raw {
		name := CleanName(r)
		if n, dup := seen[name]; dup {
			candidate := name + "." + strconv.Itoa(n)
			for {
				if _, taken := seen[candidate]; !taken {
					break
				}
				n++
				candidate = name + "." + strconv.Itoa(n)
			}
			seen[name] = n + 1
			seen[candidate] = 1
			name = candidate
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// Rename records one alias that was mapped to its canonical name.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result describes what Normalize did to a table.
type Result struct {
	Present  []string
	Renames  []Rename
	Warnings []table.CoercionWarning
}

// WarningCounts returns the number of coercion warnings per field.
func (r Result) WarningCounts() map[string]int {
	out := make(map[string]int)
	for _, w := range r.Warnings {
		out[w.Field]++
	}
	return out
}

// Normalize cleans the header of t, renames its columns in place into the
// canonical schema and coerces the numeric canonical fields. Fields with no
// matching alias are left absent.
func Normalize(t *table.Table) (Result, error) {
	var res Result
	if err := t.SetNames(CleanHeader(t.Columns())); err != nil {
		return res, err
	}
	for _, f := range Fields {
		col, ok := Resolve(t.Columns(), cleanAll(f.Aliases))
		if !ok {
			continue
		}
		if col != f.Name {
			if t.Has(f.Name) {
				return res, &SchemaError{Column: col, Reason: "renaming to " + f.Name + " would duplicate an existing column"}
			}
			t.Rename(col, f.Name)
			res.Renames = append(res.Renames, Rename{From: col, To: f.Name})
		}
		res.Present = append(res.Present, f.Name)

		if f.Numeric {
			c, _ := t.Column(f.Name)
			res.Warnings = append(res.Warnings, table.CoerceColumn(c)...)
		}
	}
	return res, nil
}

func cleanAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = CleanName(n)
	}
	return out
}
