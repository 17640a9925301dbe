// Package report builds the plain-text workforce report printed by the
// report command.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrBadFilter is returned for a filter flag that is not dimension=value.
var ErrBadFilter = errors.New("filter must be dimension=value")

// Backend is the query surface the report reads from.
type Backend interface {
	Dataset() (*dataset.Dataset, error)
	Stats(ctx context.Context, state filter.State) (aggregate.Stats, error)
	Dashboard(ctx context.Context, state filter.State) (aggregate.Dashboard, error)
	WriteDepartmentsCSV(ctx context.Context, w io.Writer, state filter.State) error
	AggregateConfig() aggregate.Config
}

// Report is everything printed for one filter state.
type Report struct {
	Source    dataset.Source
	LoadedAt  time.Time
	Filters   filter.State
	Stats     aggregate.Stats
	Dashboard aggregate.Dashboard
	Config    aggregate.Config
}

// Build computes the report sections concurrently.
func Build(ctx context.Context, b Backend, state filter.State) (*Report, error) {
	ds, err := b.Dataset()
	if err != nil {
		return nil, err
	}
	r := &Report{
		Source:   ds.Source(),
		LoadedAt: ds.LoadedAt(),
		Filters:  state,
		Config:   b.AggregateConfig(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := b.Stats(gctx, state)
		if err != nil {
			return fmt.Errorf("overall statistics: %w", err)
		}
		r.Stats = st
		return nil
	})
	g.Go(func() error {
		d, err := b.Dashboard(gctx, state)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		r.Dashboard = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseFilters turns dimension=value pairs into a filter state. Repeated
// dimensions accumulate values.
func ParseFilters(pairs []string) (filter.State, error) {
	state := filter.State{}
	for _, p := range pairs {
		dim, val, ok := strings.Cut(p, "=")
		dim, val = strings.TrimSpace(dim), strings.TrimSpace(val)
		if !ok || dim == "" || val == "" {
			return filter.State{}, fmt.Errorf("%w: %q", ErrBadFilter, p)
		}
		state = state.With(dim, append(state.Selection(dim), val)...)
	}
	if err := state.Validate(); err != nil {
		return filter.State{}, err
	}
	return state, nil
}

// Export writes the department summary CSV to path, creating parent
// directories.
func Export(ctx context.Context, b Backend, path string, state filter.State) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := b.WriteDepartmentsCSV(ctx, file, state); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	logger.Get().Info(ctx, "department summary exported", logger.String("path", path))
	return nil
}

// Write prints every section of r.
func Write(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	writeSource(tw, r)
	writeOverall(tw, r.Stats)
	writeCounts(tw, "Company split", r.Dashboard.Company)
	writeCounts(tw, "Rating distribution", r.Dashboard.Rating)
	writeSeniority(tw, r)
	writeDepartments(tw, r.Dashboard.Departments)

	if len(r.Dashboard.Disabled) > 0 {
		fmt.Fprintf(tw, "\nUnavailable charts: %s\n", strings.Join(r.Dashboard.Disabled, ", "))
	}
	return tw.Flush()
}

func writeSource(w io.Writer, r *Report) {
	fmt.Fprintln(w, "Castle of Insights")
	fmt.Fprintf(w, "Source:\t%s (%s)\n", r.Source.Path, r.Source.Kind)
	if r.Source.Sheet != "" {
		fmt.Fprintf(w, "Sheet:\t%s\n", r.Source.Sheet)
	}
	fmt.Fprintf(w, "Loaded:\t%s\n", r.LoadedAt.UTC().Format(time.RFC3339))
	if !r.Filters.IsEmpty() {
		fmt.Fprintf(w, "Filters:\t%s\n", r.Filters.Key())
	}
}

func writeOverall(w io.Writer, st aggregate.Stats) {
	fmt.Fprintln(w, "\nOverall")
	fmt.Fprintf(w, "Employees:\t%d\n", st.Total)
	writeSummary(w, "Salary", st.Salary)
	writeSummary(w, "Output", st.Output)
}

func writeSummary(w io.Writer, label string, s *aggregate.Summary) {
	switch {
	case s == nil:
		fmt.Fprintf(w, "%s:\tnot available\n", label)
	case s.Mean == nil:
		fmt.Fprintf(w, "%s:\tno values\n", label)
	default:
		fmt.Fprintf(w, "%s:\ttotal %.2f\tmean %.2f\tn %d\n", label, s.Sum, *s.Mean, s.N)
	}
}

func writeCounts(w io.Writer, title string, counts []aggregate.Count) {
	fmt.Fprintf(w, "\n%s\n", title)
	if counts == nil {
		fmt.Fprintln(w, "not available")
		return
	}
	if len(counts) == 0 {
		fmt.Fprintln(w, "no rows")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Label, c.Count)
	}
}

func writeSeniority(w io.Writer, r *Report) {
	fmt.Fprintln(w, "\nSeniority")
	if r.Stats.Senior == nil || r.Stats.Experienced == nil {
		fmt.Fprintln(w, "not available")
		return
	}
	fmt.Fprintf(w, "%g+ years:\t%d\t%.1f%%\n", r.Config.SeniorTenure, r.Stats.Senior.Count, r.Stats.Senior.Percent)
	fmt.Fprintf(w, "%g+ years:\t%d\t%.1f%%\n", r.Config.ExperiencedTenure, r.Stats.Experienced.Count, r.Stats.Experienced.Percent)
}

func writeDepartments(w io.Writer, rows []aggregate.DepartmentRow) {
	fmt.Fprintln(w, "\nDepartments")
	if rows == nil {
		fmt.Fprintln(w, "not available")
		return
	}
	fmt.Fprintln(w, "Department\tRetained\tHighlighted\tSenior\tTop rated\tSalary\tOutput")
	for _, d := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.2f\t%.2f\n",
			d.Department, d.Total, d.Highlighted, d.Senior, d.TopRated, d.TotalSalary, d.TotalOutput)
	}
}
