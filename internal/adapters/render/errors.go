package render

import "errors"

var (
	// ErrUnknownChart is returned for a chart name that does not exist.
	ErrUnknownChart = errors.New("unknown chart")
	// ErrDisabled is returned when the chart depends on an absent column.
	ErrDisabled = errors.New("chart disabled: required column absent")
	// ErrNotEnoughData is returned when the filtered view cannot be drawn.
	ErrNotEnoughData = errors.New("not enough data to draw chart")
)
