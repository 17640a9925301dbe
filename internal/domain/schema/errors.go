package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDataSource is returned when no supported input could be loaded.
	ErrDataSource = errors.New("no usable data source")
	// ErrSchema is returned when a structural assumption about the input fails.
	ErrSchema = errors.New("schema violation")
)

// Attempt records one candidate source and why it was rejected.
type Attempt struct {
	Path string
	Err  error
}

// DataSourceError lists every candidate that was tried.
type DataSourceError struct {
	Attempts []Attempt
}

func (e *DataSourceError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s (%v)", a.Path, a.Err))
		} else {
			parts = append(parts, a.Path)
		}
	}
	return fmt.Sprintf("%v; tried: %s", ErrDataSource, strings.Join(parts, ", "))
}

func (e *DataSourceError) Unwrap() error { return ErrDataSource }

// Paths returns the attempted paths in order.
func (e *DataSourceError) Paths() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.Path
	}
	return out
}

// SchemaError reports a column that violates a structural assumption.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: column %q: %s", ErrSchema, e.Column, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }
