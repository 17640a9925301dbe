// Package aggregate turns a filtered view of the canonical dataset into the
// chart-ready numbers shown by the dashboards and the report CLI. Every
// aggregate that depends on an absent column reports itself as disabled
// instead of failing.
package aggregate

import (
	"sort"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/internal/domain/schema"
)

// Count is one category and how many rows carry it.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// GroupCounts is the rating distribution inside one tenure group.
type GroupCounts struct {
	Group  string  `json:"group"`
	Counts []Count `json:"counts"`
}

// Cards are the headline numbers of the dashboard. Averages are nil when the
// column is absent or has no values in the view.
type Cards struct {
	Headcount int      `json:"headcount"`
	AvgTenure *float64 `json:"avg_tenure"`
	AvgOutput *float64 `json:"avg_output"`
}

// Option is the list of selectable values for one filter dimension.
type Option struct {
	Dimension string   `json:"dimension"`
	Values    []string `json:"values"`
}

// SummaryCards computes the headline cards for v.
func SummaryCards(v dataset.View) Cards {
	c := Cards{Headcount: v.Len()}
	if m := Measure(v, schema.Tenure); m != nil {
		c.AvgTenure = m.Mean
	}
	if m := Measure(v, schema.Output); m != nil {
		c.AvgOutput = m.Mean
	}
	return c
}

// FilterOptions lists selectable values for every filterable dimension
// present in ds. Tenure groups are always offered in bucket order; other
// dimensions list their distinct values sorted.
func FilterOptions(ds *dataset.Dataset) []Option {
	var out []Option
	for _, dim := range filter.Dimensions {
		if !ds.Has(dim) {
			continue
		}
		if dim == schema.TenureGroup {
			out = append(out, Option{Dimension: dim, Values: derive.Groups()})
			continue
		}
		out = append(out, Option{Dimension: dim, Values: Distinct(ds.All(), dim)})
	}
	return out
}

// Distinct returns the sorted distinct non-missing values of col in v.
func Distinct(v dataset.View, col string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	ds := v.Dataset()
	for i := 0; i < v.Len(); i++ {
		s, ok := ds.Text(v.Row(i), col)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CountBy counts rows of v per value of col, skipping missing cells. ok is
// false when col is absent.
func CountBy(v dataset.View, col string) (counts map[string]int, ok bool) {
	ds := v.Dataset()
	if ds == nil || !ds.Has(col) {
		return nil, false
	}
	counts = make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		if s, present := ds.Text(v.Row(i), col); present {
			counts[s]++
		}
	}
	return counts, true
}

// CompanySplit counts rows per company, largest first. nil when the company
// column is absent.
func CompanySplit(v dataset.View) []Count {
	counts, ok := CountBy(v, schema.CompanyOrigin)
	if !ok {
		return nil
	}
	out := toCounts(counts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// RatingDistribution counts rows per work rating in label order. nil when
// the rating column is absent.
func RatingDistribution(v dataset.View) []Count {
	counts, ok := CountBy(v, schema.WorkRating)
	if !ok {
		return nil
	}
	return toCounts(counts)
}

// TenureByRating breaks the rating distribution down by tenure group. Groups
// come in bucket order and every group lists the same ratings. nil when
// either column is absent.
func TenureByRating(v dataset.View) []GroupCounts {
	ds := v.Dataset()
	if ds == nil || !ds.Has(schema.TenureGroup) || !ds.Has(schema.WorkRating) {
		return nil
	}
	ratings := Distinct(v, schema.WorkRating)
	cells := make(map[string]map[string]int)
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		g, ok := ds.Text(row, schema.TenureGroup)
		if !ok {
			continue
		}
		r, ok := ds.Text(row, schema.WorkRating)
		if !ok {
			continue
		}
		if cells[g] == nil {
			cells[g] = make(map[string]int)
		}
		cells[g][r]++
	}

	out := make([]GroupCounts, 0, len(derive.Groups()))
	for _, g := range derive.Groups() {
		gc := GroupCounts{Group: g, Counts: make([]Count, len(ratings))}
		for i, r := range ratings {
			gc.Counts[i] = Count{Label: r, Count: cells[g][r]}
		}
		out = append(out, gc)
	}
	return out
}

func toCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
