package dataset

import "time"

// Option configures Build.
type Option func(*Dataset)

// WithSource records the origin of the data.
func WithSource(src Source) Option {
	return func(d *Dataset) {
		d.source = src
	}
}

// WithLoadedAt overrides the build timestamp.
func WithLoadedAt(t time.Time) Option {
	return func(d *Dataset) {
		d.loadedAt = t
	}
}
