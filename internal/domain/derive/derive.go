// Package derive computes the derived canonical columns.
package derive

import (
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/internal/domain/table"
)

// Tenure group labels.
const (
	GroupJunior = "<5 years"
	GroupMid    = "5-15 years"
	GroupSenior = "15+ years"
)

// Bucket edges in years; both are inclusive upper bounds.
const (
	juniorMax = 5.0
	midMax    = 15.0
)

// Groups returns the tenure group labels in ascending order.
func Groups() []string {
	return []string{GroupJunior, GroupMid, GroupSenior}
}

// Bucket maps a tenure in years to its group. Zero and negative tenures fall
// into the lowest bucket.
func Bucket(years float64) string {
	switch {
	case years <= juniorMax:
		return GroupJunior
	case years <= midMax:
		return GroupMid
	default:
		return GroupSenior
	}
}

// Finding is a data-quality concern noticed while deriving.
type Finding struct {
	Kind  string `json:"kind"`
	Field string `json:"field"`
	Rows  []int  `json:"rows"`
}

// KindNegativeTenure flags rows whose tenure is below zero.
const KindNegativeTenure = "negative_tenure"

// Apply adds or recomputes TenureGroup from Tenure. When Tenure is absent any
// TenureGroup column is removed so the derived field never outlives its
// input. Apply is idempotent.
func Apply(t *table.Table) ([]Finding, error) {
	tenure, ok := t.Column(schema.Tenure)
	if !ok {
		t.Drop(schema.TenureGroup)
		return nil, nil
	}

	groups := make([]table.Value, len(tenure.Values))
	var negative []int
	for i, v := range tenure.Values {
		years, ok := v.Float()
		if !ok {
			continue
		}
		if years < 0 {
			negative = append(negative, i)
		}
		groups[i] = table.Text(Bucket(years))
	}
	if err := t.SetColumn(schema.TenureGroup, groups); err != nil {
		return nil, err
	}

	if len(negative) == 0 {
		return nil, nil
	}
	return []Finding{{Kind: KindNegativeTenure, Field: schema.Tenure, Rows: negative}}, nil
}
