// Package table holds the in-memory tabular model shared by the loader, the
// schema normalizer and the canonical dataset.
package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags the content of a cell.
type Kind uint8

const (
	// KindMissing marks an empty cell or a failed numeric coercion.
	KindMissing Kind = iota
	// KindText marks an untyped raw cell or a categorical value.
	KindText
	// KindNumber marks a cell that holds a finite float64.
	KindNumber
)

// Value is a single tagged cell.
type Value struct {
	kind Kind
	text string
	num  float64
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Text returns a text cell. Blank text is treated as missing.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric cell. NaN and infinities are treated as missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Kind reports the cell kind.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric content; ok is false for text and missing cells.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the cell the way it is shown to users and written to CSV.
// Missing cells render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Interface returns the cell as a JSON-friendly value (nil, string or float64).
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	default:
		return nil
	}
}

// ParseNumber is the explicit coerce-or-null conversion applied to numeric
// canonical fields. Surrounding whitespace is ignored; anything
// strconv.ParseFloat rejects, or a non-finite result, yields ok == false.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Coerce converts a cell to numeric. Numbers pass through, missing stays
// missing, and text is parsed with ParseNumber. ok is false only when a
// present cell could not be converted.
func Coerce(v Value) (Value, bool) {
	switch v.kind {
	case KindNumber, KindMissing:
		return v, true
	default:
		f, ok := ParseNumber(v.text)
		if !ok {
			return Missing(), false
		}
		return Number(f), true
	}
}
