// Package filter holds the dashboard filter state and evaluates it against
// the canonical dataset.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/schema"
)

// ErrUnknownDimension is returned for a selection on a column that is not
// filterable.
var ErrUnknownDimension = errors.New("unknown filter dimension")

// Dimensions lists the filterable columns in display order.
var Dimensions = []string{schema.Department, schema.TenureGroup, schema.CompanyOrigin}

// State is one ordered selection per dimension. An empty or absent
// selection means no restriction. The zero value is the all-empty state.
type State struct {
	Selections map[string][]string `json:"filters"`
}

// With returns a copy of s with the selection for dim replaced.
func (s State) With(dim string, values ...string) State {
	out := State{Selections: make(map[string][]string, len(s.Selections)+1)}
	for k, v := range s.Selections {
		out.Selections[k] = v
	}
	if len(values) == 0 {
		delete(out.Selections, dim)
	} else {
		out.Selections[dim] = append([]string(nil), values...)
	}
	return out
}

// Selection returns the selected values for dim.
func (s State) Selection(dim string) []string { return s.Selections[dim] }

// IsEmpty reports whether no dimension is restricted.
func (s State) IsEmpty() bool {
	for _, v := range s.Selections {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Validate rejects selections on non-filterable dimensions.
func (s State) Validate() error {
	for dim := range s.Selections {
		if !isDimension(dim) {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
		}
	}
	return nil
}

// Key returns a canonical string for s. States that select the same sets
// share a key regardless of value order or duplicates.
func (s State) Key() string {
	var b strings.Builder
	for _, dim := range Dimensions {
		vals := uniqueSorted(s.Selections[dim])
		if len(vals) == 0 {
			continue
		}
		b.WriteString(dim)
		b.WriteByte('=')
		for i, v := range vals {
			if i > 0 {
				b.WriteByte(0x1f)
			}
			b.WriteString(v)
		}
		b.WriteByte(0x1e)
	}
	return b.String()
}

// Apply returns the rows of v that satisfy s: within a dimension a row must
// equal one of the selected values, and every restricted dimension must
// match. Values compare exactly. A missing cell never matches a restricted
// dimension. A dimension whose column is absent is ignored.
func Apply(v dataset.View, s State) dataset.View {
	type clause struct {
		dim string
		set map[string]struct{}
	}
	var clauses []clause
	ds := v.Dataset()
	for _, dim := range Dimensions {
		sel := s.Selections[dim]
		if len(sel) == 0 || ds == nil || !ds.Has(dim) {
			continue
		}
		set := make(map[string]struct{}, len(sel))
		for _, val := range sel {
			set[val] = struct{}{}
		}
		clauses = append(clauses, clause{dim: dim, set: set})
	}
	if len(clauses) == 0 {
		return v
	}

	return v.Where(func(row int) bool {
		for _, c := range clauses {
			text, ok := ds.Text(row, c.dim)
			if !ok {
				return false
			}
			if _, hit := c.set[text]; !hit {
				return false
			}
		}
		return true
	})
}

// Single returns the state for a single-select control where all means no
// restriction.
func Single(dim, value, all string) State {
	if value == "" || value == all {
		return State{}
	}
	return State{}.With(dim, value)
}

func isDimension(dim string) bool {
	for _, d := range Dimensions {
		if d == dim {
			return true
		}
	}
	return false
}

func uniqueSorted(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	out := append([]string(nil), vals...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
