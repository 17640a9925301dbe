package service_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/castle/internal/app"
	"github.com/okian/castle/internal/adapters/render"
	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/internal/domain/table"
	"github.com/okian/castle/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.InitWithWriter(&bytes.Buffer{})
	if err != nil {
		panic(err)
	}
}

type stubLoader struct {
	ds    *dataset.Dataset
	err   error
	calls int
}

func (l *stubLoader) Load(context.Context) (*dataset.Dataset, error) {
	l.calls++
	return l.ds, l.err
}

func workforce() *dataset.Dataset {
	ds, err := dataset.Build(table.New(
		[]string{"Dept", "Tenure_Years", "Company", "Rating", "Salary", "Output"},
		[][]string{
			{"Eng", "2", "Technova", "A", "100", "10"},
			{"Eng", "20", "Other", "B", "200", "20"},
			{"Ops", "8", "Technova", "A", "300", "30"},
			{"Ops", "16", "Technova", "C", "400", "40"},
			{"HR", "", "Other", "", "x", "50"},
		},
	), dataset.WithSource(dataset.Source{Path: "mem.csv", Kind: dataset.KindPrimary}))
	So(err, ShouldBeNil)
	return ds
}

func started(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.MaxRows(), ShouldEqual, 1000)
			So(svc.AggregateConfig(), ShouldResemble, aggregate.DefaultConfig())
		})

		Convey("Then queries fail until it is started", func() {
			_, err := svc.Dataset()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Dashboard(context.Background(), filter.State{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		cfg := aggregate.DefaultConfig()
		cfg.Highlight = "Other"
		svc := service.New(
			service.WithMaxRows(2),
			service.WithMaxRows(-1),
			service.WithAggregateConfig(cfg),
			service.WithRenderer(render.New(render.WithSize(200, 200))),
		)

		Convey("Then the options are applied and invalid ones ignored", func() {
			So(svc.MaxRows(), ShouldEqual, 2)
			So(svc.AggregateConfig().Highlight, ShouldEqual, "Other")
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service with a loader", t, func() {
		loader := &stubLoader{ds: workforce()}
		svc := service.New(service.WithLoader(loader), service.WithLogger(logger.Nop()))
		defer svc.Stop()

		Convey("When starting the service twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then the dataset is loaded once", func() {
				So(loader.calls, ShouldEqual, 1)
				ds, err := svc.Dataset()
				So(err, ShouldBeNil)
				So(ds.Len(), ShouldEqual, 5)
			})

			Convey("And stats describe the source", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["source"], ShouldEqual, "mem.csv")
				So(stats["sourceKind"], ShouldEqual, dataset.KindPrimary)
				So(stats["rows"], ShouldEqual, 5)
			})
		})
	})

	Convey("Given a loader that finds no data", t, func() {
		fail := &schema.DataSourceError{Attempts: []schema.Attempt{{Path: "a.csv"}, {Path: "b.xlsx"}}}
		svc := service.New(service.WithLoader(&stubLoader{err: fail}), service.WithLogger(logger.Nop()))

		Convey("Then Start returns the data source error", func() {
			err := svc.Start(context.Background())
			var dsErr *schema.DataSourceError
			So(errors.As(err, &dsErr), ShouldBeTrue)
			So(dsErr.Paths(), ShouldResemble, []string{"a.csv", "b.xlsx"})
		})
	})

	Convey("Given a service without a loader or dataset", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then Start reports the missing loader", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoLoader), ShouldBeTrue)
		})
	})
}

func TestService_Queries(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := started(service.WithDataset(workforce()), service.WithMaxRows(3))
		defer svc.Stop()

		Convey("When filtering by department and tenure group", func() {
			state := filter.State{}.With(schema.Department, "Eng").With(schema.TenureGroup, derive.GroupSenior)
			v, err := svc.Filter(ctx, state)

			Convey("Then only the matching row remains", func() {
				So(err, ShouldBeNil)
				So(v.Rows(), ShouldResemble, []int{1})
			})
		})

		Convey("When filtering on an unknown dimension", func() {
			state := filter.State{}.With("Salary", "100")
			_, err := svc.Filter(ctx, state)
			_, derr := svc.Dashboard(ctx, state)

			Convey("Then both calls are rejected", func() {
				So(errors.Is(err, filter.ErrUnknownDimension), ShouldBeTrue)
				So(errors.Is(derr, filter.ErrUnknownDimension), ShouldBeTrue)
			})
		})

		Convey("When computing the dashboard for equivalent states", func() {
			a, err := svc.Dashboard(ctx, filter.State{}.With(schema.Department, "Ops", "Eng"))
			So(err, ShouldBeNil)
			b, err := svc.Dashboard(ctx, filter.State{}.With(schema.Department, "Eng", "Ops", "Eng"))
			So(err, ShouldBeNil)

			Convey("Then the results are identical", func() {
				So(b, ShouldResemble, a)
				So(a.Cards.Headcount, ShouldEqual, 4)
			})
		})

		Convey("When paging rows", func() {
			p, err := svc.Rows(ctx, filter.State{}, 1, 0)

			Convey("Then the page is capped at the maximum", func() {
				So(err, ShouldBeNil)
				So(p.Total, ShouldEqual, 5)
				So(p.Offset, ShouldEqual, 1)
				So(p.Limit, ShouldEqual, 3)
				So(len(p.Rows), ShouldEqual, 3)
				So(p.Rows[0][schema.Department], ShouldEqual, "Eng")
				So(p.Rows[0][schema.Tenure], ShouldEqual, 20.0)
				So(p.Columns, ShouldContain, schema.TenureGroup)
			})
		})

		Convey("When paging past the end", func() {
			p, err := svc.Rows(ctx, filter.State{}, 10, 2)

			Convey("Then the page is empty", func() {
				So(err, ShouldBeNil)
				So(p.Total, ShouldEqual, 5)
				So(p.Rows, ShouldBeEmpty)
			})
		})

		Convey("When asking for overall statistics", func() {
			st, err := svc.Stats(ctx, filter.State{})

			Convey("Then the thresholds are applied", func() {
				So(err, ShouldBeNil)
				So(st.Total, ShouldEqual, 5)
				So(st.Senior.Count, ShouldEqual, 2)
				So(st.Experienced.Count, ShouldEqual, 3)
				So(st.Salary.N, ShouldEqual, 4)
			})
		})

		Convey("When exporting the department summary", func() {
			var buf bytes.Buffer
			err := svc.WriteDepartmentsCSV(ctx, &buf, filter.State{})

			Convey("Then it uses the summary file layout", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines[0], ShouldEqual, "Department,TotalRetained,TechnovaRetained,Tenure15+,ARated,TotalSalary,TotalOutput")
				So(lines, ShouldHaveLength, 4)
				So(lines[1], ShouldEqual, "Eng,2,1,1,1,300,30")
			})
		})

		Convey("When listing filter options and schema", func() {
			opts, err := svc.FilterOptions(ctx)
			So(err, ShouldBeNil)
			info, err := svc.Schema(ctx)
			So(err, ShouldBeNil)

			Convey("Then every dimension is offered", func() {
				So(opts, ShouldHaveLength, 3)
				So(opts[0].Values, ShouldResemble, []string{"Eng", "HR", "Ops"})
				So(opts[1].Values, ShouldResemble, derive.Groups())
			})

			Convey("Then the schema names the renames and derived fields", func() {
				So(info.Source.Path, ShouldEqual, "mem.csv")
				So(info.Derived, ShouldResemble, []string{schema.TenureGroup})
				So(slices.Contains(info.Renames, schema.Rename{From: "Dept", To: schema.Department}), ShouldBeTrue)
				So(info.Quality.CoercionWarnings[schema.Salary], ShouldEqual, 1)
				So(info.Charts, ShouldBeEmpty)
			})
		})

		Convey("When rendering charts", func() {
			var buf bytes.Buffer

			Convey("Then a known chart renders PNG", func() {
				So(svc.RenderChart(ctx, &buf, aggregate.ChartCompany, filter.State{}), ShouldBeNil)
				So(bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), ShouldBeTrue)
			})

			Convey("Then an unknown chart is rejected", func() {
				err := svc.RenderChart(ctx, &buf, "radar", filter.State{})
				So(errors.Is(err, render.ErrUnknownChart), ShouldBeTrue)
			})

			Convey("Then an empty selection reports not enough data", func() {
				err := svc.RenderChart(ctx, &buf, aggregate.ChartSalaryOutput, filter.State{}.With(schema.Department, "Nobody"))
				So(errors.Is(err, render.ErrNotEnoughData), ShouldBeTrue)
			})
		})
	})

	Convey("Given a dataset without a department column", t, func() {
		ds, err := dataset.Build(table.New([]string{"Tenure"}, [][]string{{"3"}}))
		So(err, ShouldBeNil)
		svc := started(service.WithDataset(ds))

		Convey("Then the department export reports the missing column", func() {
			var buf bytes.Buffer
			err := svc.WriteDepartmentsCSV(ctx, &buf, filter.State{})
			So(errors.Is(err, service.ErrMissingColumn), ShouldBeTrue)
		})
	})
}
