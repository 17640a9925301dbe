package table

import "fmt"

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is an ordered set of equally long columns. Column order follows the
// raw source header order; derived columns are appended.
type Table struct {
	cols []*Column
	rows int
}

// New builds a table from a header and raw rows. Short rows are padded with
// missing cells and extra cells beyond the header are dropped.
func New(header []string, rows [][]string) *Table {
	t := &Table{rows: len(rows)}
	for i, name := range header {
		vals := make([]Value, len(rows))
		for r, row := range rows {
			if i < len(row) {
				vals[r] = Text(row[i])
			}
		}
		t.cols = append(t.cols, &Column{Name: name, Values: vals})
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the first column named exactly name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.cols {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Has reports whether a column named exactly name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Rename changes the name of the first column called from.
func (t *Table) Rename(from, to string) bool {
	for _, c := range t.cols {
		if c.Name == from {
			c.Name = to
			return true
		}
	}
	return false
}

// SetColumn replaces the values of an existing column or appends a new one.
func (t *Table) SetColumn(name string, values []Value) error {
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if c, ok := t.Column(name); ok {
		c.Values = values
		return nil
	}
	t.cols = append(t.cols, &Column{Name: name, Values: values})
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{rows: t.rows, cols: make([]*Column, len(t.cols))}
	for i, c := range t.cols {
		vals := make([]Value, len(c.Values))
		copy(vals, c.Values)
		out.cols[i] = &Column{Name: c.Name, Values: vals}
	}
	return out
}

// SetNames replaces every column name positionally.
func (t *Table) SetNames(names []string) error {
	if len(names) != len(t.cols) {
		return fmt.Errorf("got %d names for %d columns", len(names), len(t.cols))
	}
	for i, n := range names {
		t.cols[i].Name = n
	}
	return nil
}

// Drop removes the first column named exactly name.
func (t *Table) Drop(name string) bool {
	for i, c := range t.cols {
		if c.Name == name {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			return true
		}
	}
	return false
}
