// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the websocket sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/castle/internal/adapters/render"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/pkg/logger"
	"github.com/okian/castle/pkg/metrics"
)

const defaultMaxRows = 1000

// Loader produces the canonical dataset.
type Loader interface {
	Load(ctx context.Context) (*dataset.Dataset, error)
}

// Service owns the canonical dataset and answers queries against it.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader   Loader
	renderer *render.Renderer
	ds       *dataset.Dataset

	// Configuration
	cfg     aggregate.Config
	maxRows int

	// Last computed dashboard, keyed by filter state.
	memoMu  sync.Mutex
	memoKey string
	memo    *aggregate.Dashboard

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader sets the loader used by Start.
func WithLoader(l Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithDataset installs an already built dataset. Start then skips loading.
func WithDataset(ds *dataset.Dataset) Option {
	return func(s *Service) {
		if ds != nil {
			s.ds = ds
		}
	}
}

// WithAggregateConfig sets the thresholds used by summaries and charts.
func WithAggregateConfig(cfg aggregate.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithRenderer sets the chart renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithMaxRows caps the page size of Rows.
func WithMaxRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRows = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:      aggregate.DefaultConfig(),
		maxRows:  defaultMaxRows,
		renderer: render.New(),
		logger:   nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the canonical dataset. A load failure is returned unchanged so
// callers can inspect *schema.DataSourceError.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting insights service...")

	if s.ds == nil {
		if s.loader == nil {
			return ErrNoLoader
		}
		ds, err := s.loader.Load(ctx)
		if err != nil {
			return err
		}
		s.ds = ds
	}

	s.started = true
	src := s.ds.Source()
	s.logger.Info(ctx, "insights service started",
		logger.String("source", src.Path),
		logger.String("kind", src.Kind),
		logger.Int("rows", s.ds.Len()),
		logger.Strings("fields", s.ds.Present()),
	)

	return nil
}

// Stop releases cached results. The dataset stays available.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping insights service...")

	s.memoMu.Lock()
	s.memo, s.memoKey = nil, ""
	s.memoMu.Unlock()

	s.started = false
	s.logger.Info(context.Background(), "insights service stopped")
}

// Dataset returns the canonical dataset.
func (s *Service) Dataset() (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ds, nil
}

// AggregateConfig returns the thresholds in use.
func (s *Service) AggregateConfig() aggregate.Config { return s.cfg }

// MaxRows returns the page size cap of Rows.
func (s *Service) MaxRows() int { return s.maxRows }

// Filter evaluates state against the dataset.
func (s *Service) Filter(ctx context.Context, state filter.State) (dataset.View, error) {
	ds, err := s.Dataset()
	if err != nil {
		return dataset.View{}, err
	}
	if err := state.Validate(); err != nil {
		return dataset.View{}, err
	}

	start := time.Now()
	v := filter.Apply(ds.All(), state)
	metrics.RecordFilterEvaluation(since(start), v.Len())

	s.logger.Debug(ctx, "filter evaluated",
		logger.String("key", state.Key()),
		logger.Int("matched", v.Len()),
	)
	return v, nil
}

// Dashboard computes every aggregate for state. The most recent result is
// reused while the state is unchanged.
func (s *Service) Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error) {
	if err := state.Validate(); err != nil {
		return aggregate.Dashboard{}, err
	}
	key := state.Key()

	s.memoMu.Lock()
	if s.memo != nil && s.memoKey == key {
		d := *s.memo
		s.memoMu.Unlock()
		return d, nil
	}
	s.memoMu.Unlock()

	v, err := s.Filter(ctx, state)
	if err != nil {
		return aggregate.Dashboard{}, err
	}

	start := time.Now()
	d := aggregate.Compute(v, s.cfg)
	metrics.RecordDashboardComputation(since(start))

	s.memoMu.Lock()
	s.memo, s.memoKey = &d, key
	s.memoMu.Unlock()

	return d, nil
}

// Page is one window of filtered rows.
type Page struct {
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Rows returns the filtered rows from offset. limit is clamped to the
// configured maximum; zero or negative means the maximum.
func (s *Service) Rows(ctx context.Context, state filter.State, offset, limit int) (Page, error) {
	v, err := s.Filter(ctx, state)
	if err != nil {
		return Page{}, err
	}
	if limit <= 0 || limit > s.maxRows {
		limit = s.maxRows
	}
	if offset < 0 {
		offset = 0
	}

	win := v.Slice(offset, limit)
	ds := v.Dataset()
	p := Page{
		Total:   v.Len(),
		Offset:  offset,
		Limit:   limit,
		Columns: ds.Columns(),
		Rows:    make([]map[string]any, win.Len()),
	}
	for i := 0; i < win.Len(); i++ {
		p.Rows[i] = ds.Record(win.Row(i))
	}
	return p, nil
}

// Stats returns the overall statistics of the filtered rows.
func (s *Service) Stats(ctx context.Context, state filter.State) (aggregate.Stats, error) {
	v, err := s.Filter(ctx, state)
	if err != nil {
		return aggregate.Stats{}, err
	}
	return aggregate.Overall(v, s.cfg), nil
}

// Departments returns the department summary of the filtered rows. nil when
// the dataset has no Department column.
func (s *Service) Departments(ctx context.Context, state filter.State) ([]aggregate.DepartmentRow, error) {
	d, err := s.Dashboard(ctx, state)
	if err != nil {
		return nil, err
	}
	return d.Departments, nil
}

// WriteDepartmentsCSV writes the department summary in the summary-file
// layout.
func (s *Service) WriteDepartmentsCSV(ctx context.Context, w io.Writer, state filter.State) error {
	rows, err := s.Departments(ctx, state)
	if err != nil {
		return err
	}
	if rows == nil {
		return fmt.Errorf("%w: %s", ErrMissingColumn, schema.Department)
	}
	return aggregate.WriteDepartmentsCSV(w, rows, s.cfg)
}

// FilterOptions lists the selectable values per filter dimension.
func (s *Service) FilterOptions(_ context.Context) ([]aggregate.Option, error) {
	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}
	return aggregate.FilterOptions(ds), nil
}

// SchemaInfo describes how the dataset was normalized.
type SchemaInfo struct {
	Source  dataset.Source     `json:"source"`
	Columns []string           `json:"columns"`
	Present []string           `json:"present"`
	Renames []schema.Rename    `json:"renames"`
	Derived []string           `json:"derived"`
	Quality dataset.Quality    `json:"quality"`
	Charts  []string           `json:"disabled_charts"`
	Options []aggregate.Option `json:"options"`
}

// Schema reports the canonical fields, the renames applied and the charts
// that are disabled for lack of a column.
func (s *Service) Schema(ctx context.Context) (SchemaInfo, error) {
	ds, err := s.Dataset()
	if err != nil {
		return SchemaInfo{}, err
	}
	d, err := s.Dashboard(ctx, filter.State{})
	if err != nil {
		return SchemaInfo{}, err
	}
	return SchemaInfo{
		Source:  ds.Source(),
		Columns: ds.Columns(),
		Present: ds.Present(),
		Renames: ds.Renames(),
		Derived: ds.Derived(),
		Quality: ds.Quality(),
		Charts:  d.Disabled,
		Options: aggregate.FilterOptions(ds),
	}, nil
}

// RenderChart writes the named chart for state as PNG.
func (s *Service) RenderChart(ctx context.Context, w io.Writer, name string, state filter.State) error {
	d, err := s.Dashboard(ctx, state)
	if err != nil {
		return err
	}

	err = s.renderer.Render(w, name, d)
	switch {
	case err == nil:
		metrics.RecordChartRender(name, metrics.OutcomeOK)
	case errors.Is(err, render.ErrNotEnoughData), errors.Is(err, render.ErrDisabled):
		metrics.RecordChartRender(name, metrics.OutcomeEmpty)
	case errors.Is(err, render.ErrUnknownChart):
		// Not a chart; nothing to count.
	default:
		metrics.RecordChartRender(name, metrics.OutcomeFailed)
		s.logger.Error(ctx, "chart render failed", logger.String("chart", name), logger.Error(err))
	}
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"maxRows": s.maxRows,
	}

	if s.started {
		src := s.ds.Source()
		stats["source"] = src.Path
		stats["sourceKind"] = src.Kind
		if src.Sheet != "" {
			stats["sheet"] = src.Sheet
		}
		stats["rows"] = s.ds.Len()
		stats["columns"] = s.ds.Columns()
		stats["loadedAt"] = s.ds.LoadedAt().UTC().Format(time.RFC3339)
		stats["quality"] = s.ds.Quality()

		// Update metrics
		metrics.UpdateDatasetShape(s.ds.Len(), len(s.ds.Columns()))
	}

	return stats
}

func since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
