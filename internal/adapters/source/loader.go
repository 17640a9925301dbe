// Package source loads the canonical dataset from the first usable data
// file among a prioritized list of candidates.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/internal/domain/table"
	"github.com/okian/castle/pkg/logger"
	"github.com/okian/castle/pkg/metrics"
)

// Candidate is one possible data file.
type Candidate struct {
	Path  string
	Kind  string
	Sheet string
}

// Files names the candidate files inside a data directory.
type Files struct {
	Dir      string
	Primary  string
	Summary  string
	Workbook string
	Sheet    string
}

// Candidates returns the candidates in priority order: primary CSV, then the
// department summary CSV, then the workbook.
func (f Files) Candidates() []Candidate {
	return []Candidate{
		{Path: filepath.Join(f.Dir, f.Primary), Kind: dataset.KindPrimary},
		{Path: filepath.Join(f.Dir, f.Summary), Kind: dataset.KindSummary},
		{Path: filepath.Join(f.Dir, f.Workbook), Kind: dataset.KindWorkbook, Sheet: f.Sheet},
	}
}

// Loader builds the canonical dataset from the first candidate that exists
// and parses.
type Loader struct {
	candidates []Candidate
	logger     logger.Logger
	now        func() time.Time
}

// NewLoader creates a loader.
func NewLoader(candidates []Candidate, opts ...Option) *Loader {
	l := &Loader{
		candidates: candidates,
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load tries every candidate in order. A missing candidate or one that fails
// to parse is skipped. When all fail a *schema.DataSourceError lists them.
func (l *Loader) Load(ctx context.Context) (*dataset.Dataset, error) {
	start := l.now()
	var attempts []schema.Attempt

	for _, c := range l.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ds, err := l.try(c)
		if err == nil {
			metrics.RecordSourceAttempt(c.Kind, metrics.OutcomeLoaded)
			metrics.RecordDatasetLoadDuration(float64(l.now().Sub(start).Microseconds()) / 1000)
			metrics.UpdateDatasetShape(ds.Len(), len(ds.Columns()))
			l.report(ctx, ds)
			return ds, nil
		}

		attempts = append(attempts, schema.Attempt{Path: c.Path, Err: err})
		if errors.Is(err, os.ErrNotExist) {
			metrics.RecordSourceAttempt(c.Kind, metrics.OutcomeMissing)
			l.logger.Debug(ctx, "data source not found", logger.String("path", c.Path))
			continue
		}
		metrics.RecordSourceAttempt(c.Kind, metrics.OutcomeFailed)
		l.logger.Warn(ctx, "data source skipped",
			logger.String("path", c.Path),
			logger.String("kind", c.Kind),
			logger.Error(err),
		)
	}
	return nil, &schema.DataSourceError{Attempts: attempts}
}

func (l *Loader) try(c Candidate) (*dataset.Dataset, error) {
	if _, err := os.Stat(c.Path); err != nil {
		return nil, err
	}

	var (
		raw   *table.Table
		sheet string
		err   error
	)
	switch c.Kind {
	case dataset.KindWorkbook:
		raw, sheet, err = ReadWorkbook(c.Path, c.Sheet)
	default:
		raw, err = ReadCSV(c.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return dataset.Build(raw,
		dataset.WithSource(dataset.Source{Path: c.Path, Kind: c.Kind, Sheet: sheet}),
		dataset.WithLoadedAt(l.now()),
	)
}

func (l *Loader) report(ctx context.Context, ds *dataset.Dataset) {
	q := ds.Quality()
	for field, n := range q.CoercionWarnings {
		metrics.RecordCoercionWarnings(field, n)
		l.logger.Debug(ctx, "numeric coercion failures", logger.String("field", field), logger.Int("cells", n))
	}
	for _, f := range q.Findings {
		metrics.RecordQualityFindings(f.Kind, len(f.Rows))
		if f.Kind == derive.KindNegativeTenure {
			l.logger.Warn(ctx, "negative tenure bucketed as lowest group", logger.Int("rows", len(f.Rows)))
		}
	}
	src := ds.Source()
	l.logger.Info(ctx, "dataset loaded",
		logger.String("path", src.Path),
		logger.String("kind", src.Kind),
		logger.Int("rows", ds.Len()),
		logger.Strings("fields", ds.Present()),
	)
}
