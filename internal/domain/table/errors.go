package table

import "fmt"

// CoercionWarning records a present cell that could not be converted to a
// number. It is collected for the data-quality report and never returned as
// a failure.
type CoercionWarning struct {
	Field string
	Row   int
	Raw   string
}

func (w CoercionWarning) Error() string {
	return fmt.Sprintf("coerce %s row %d: %q is not numeric", w.Field, w.Row, w.Raw)
}

// CoerceColumn converts every cell of c to numeric in place and returns the
// warnings for cells that became missing.
func CoerceColumn(c *Column) []CoercionWarning {
	var warns []CoercionWarning
	for i, v := range c.Values {
		nv, ok := Coerce(v)
		if !ok {
			warns = append(warns, CoercionWarning{Field: c.Name, Row: i, Raw: v.String()})
		}
		c.Values[i] = nv
	}
	return warns
}
