package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNoLoader      = errors.New("no dataset loader configured")
	ErrMissingColumn = errors.New("column not present in dataset")
)
