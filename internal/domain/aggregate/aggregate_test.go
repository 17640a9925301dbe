package aggregate

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/internal/domain/schema"
	"github.com/okian/castle/internal/domain/table"
)

func workforce() *dataset.Dataset {
	ds, err := dataset.Build(table.New(
		[]string{"Department", "Tenure", "Company", "Rating", "Salary", "Output"},
		[][]string{
			{"Eng", "2", "Technova", "A", "100", "10"},
			{"Eng", "20", "Other", "B", "200", "20"},
			{"Ops", "8", "Technova", "A", "300", "30"},
			{"Ops", "16", "Technova", "C", "400", ""},
			{"HR", "", "Other", "", "x", "50"},
		},
	))
	So(err, ShouldBeNil)
	return ds
}

func TestCountsAndCards(t *testing.T) {
	Convey("Given a workforce dataset", t, func() {
		ds := workforce()
		all := ds.All()

		Convey("Then cards average only present values", func() {
			c := SummaryCards(all)
			So(c.Headcount, ShouldEqual, 5)
			So(*c.AvgTenure, ShouldEqual, 11.5)
			So(*c.AvgOutput, ShouldEqual, 27.5)
		})

		Convey("Then the company split is largest first", func() {
			So(CompanySplit(all), ShouldResemble, []Count{{"Technova", 3}, {"Other", 2}})
		})

		Convey("Then ratings are counted in label order", func() {
			So(RatingDistribution(all), ShouldResemble, []Count{{"A", 2}, {"B", 1}, {"C", 1}})
		})

		Convey("Then tenure by rating keeps bucket order", func() {
			tr := TenureByRating(all)
			So(tr, ShouldHaveLength, 3)
			So(tr[0].Group, ShouldEqual, derive.GroupJunior)
			So(tr[0].Counts, ShouldResemble, []Count{{"A", 1}, {"B", 0}, {"C", 0}})
			So(tr[1].Counts, ShouldResemble, []Count{{"A", 1}, {"B", 0}, {"C", 0}})
			So(tr[2].Counts, ShouldResemble, []Count{{"A", 0}, {"B", 1}, {"C", 1}})
		})

		Convey("Then filter options cover every present dimension", func() {
			opts := FilterOptions(ds)
			So(opts, ShouldResemble, []Option{
				{Dimension: schema.Department, Values: []string{"Eng", "HR", "Ops"}},
				{Dimension: schema.TenureGroup, Values: derive.Groups()},
				{Dimension: schema.CompanyOrigin, Values: []string{"Other", "Technova"}},
			})
		})

		Convey("Then an empty view yields zero counts and no averages", func() {
			empty := filter.Apply(all, filter.State{}.With(schema.Department, "Nobody"))
			c := SummaryCards(empty)
			So(c.Headcount, ShouldEqual, 0)
			So(c.AvgTenure, ShouldBeNil)
			So(CompanySplit(empty), ShouldBeEmpty)
			So(CompanySplit(empty), ShouldNotBeNil)
		})
	})

	Convey("Given a dataset missing most columns", t, func() {
		ds, err := dataset.Build(table.New([]string{"Department"}, [][]string{{"Eng"}}))
		So(err, ShouldBeNil)

		Convey("Then dependent aggregates are disabled rather than failing", func() {
			d := Compute(ds.All(), DefaultConfig())
			So(d.Cards.Headcount, ShouldEqual, 1)
			So(d.Cards.AvgTenure, ShouldBeNil)
			So(d.Company, ShouldBeNil)
			So(d.Rating, ShouldBeNil)
			So(d.TenureRating, ShouldBeNil)
			So(d.SalaryOutput, ShouldBeNil)
			So(d.Disabled, ShouldResemble, []string{ChartCompany, ChartRating, ChartTenure, ChartSalaryOutput, ChartTenureOutput})
			So(FilterOptions(ds), ShouldHaveLength, 1)
		})
	})
}

func TestScatterAndFit(t *testing.T) {
	Convey("Given a workforce dataset", t, func() {
		ds := workforce()
		colors := RatingColors(ds)

		Convey("Then ratings get palette colours in sorted order", func() {
			So(colors, ShouldResemble, map[string]string{"A": Palette[0], "B": Palette[1], "C": Palette[2]})
		})

		Convey("Then scatter keeps only complete pairs", func() {
			s := ScatterOf(ds.All(), schema.Salary, schema.Output, colors)
			So(s.Points, ShouldHaveLength, 3)
			So(s.Points[2].Row, ShouldEqual, 2)
			So(s.Points[2].Color, ShouldEqual, Palette[0])
		})

		Convey("Then colours do not move when the view is filtered", func() {
			ops := filter.Apply(ds.All(), filter.State{}.With(schema.Department, "Ops"))
			d := Compute(ops, DefaultConfig())
			So(d.SalaryOutput.Points, ShouldHaveLength, 1)
			So(d.SalaryOutput.Points[0].Color, ShouldEqual, Palette[0])
			So(d.SalaryOutput.Fit, ShouldBeNil)
		})
	})

	Convey("Given collinear points", t, func() {
		pts := []Point{{X: 1, Y: 3}, {X: 2, Y: 5}, {X: 3, Y: 7}, {X: 5, Y: 11}}
		l := Fit(pts, 5)

		Convey("Then the fit recovers the line and samples it evenly", func() {
			So(l, ShouldNotBeNil)
			So(l.Slope, ShouldAlmostEqual, 2, 1e-9)
			So(l.Intercept, ShouldAlmostEqual, 1, 1e-9)
			So(l.Points, ShouldHaveLength, 5)
			So(l.Points[0].X, ShouldEqual, 1)
			So(l.Points[4].X, ShouldEqual, 5)
			So(l.Points[2].Y, ShouldAlmostEqual, 7, 1e-9)
		})
	})

	Convey("Given too few or degenerate points", t, func() {
		So(Fit([]Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, 50), ShouldBeNil)
		So(Fit([]Point{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}}, 50), ShouldBeNil)
	})
}

func TestSummaries(t *testing.T) {
	Convey("Given a workforce dataset", t, func() {
		ds := workforce()
		cfg := DefaultConfig()

		Convey("Then overall stats follow the thresholds", func() {
			st := Overall(ds.All(), cfg)
			So(st.Total, ShouldEqual, 5)
			So(st.Salary.N, ShouldEqual, 4)
			So(st.Salary.Sum, ShouldEqual, 1000)
			So(*st.Salary.Mean, ShouldEqual, 250)
			So(st.Senior.Count, ShouldEqual, 2)
			So(st.Senior.Percent, ShouldEqual, 40)
			So(st.Experienced.Count, ShouldEqual, 3)
		})

		Convey("Then departments are summarized by name", func() {
			rows := Departments(ds.All(), cfg)
			So(rows, ShouldResemble, []DepartmentRow{
				{Department: "Eng", Total: 2, Highlighted: 1, Senior: 1, TopRated: 1, TotalSalary: 300, TotalOutput: 30},
				{Department: "HR", Total: 1, TotalOutput: 50},
				{Department: "Ops", Total: 2, Highlighted: 2, Senior: 1, TopRated: 1, TotalSalary: 700, TotalOutput: 30},
			})
		})

		Convey("When exported as CSV", func() {
			var buf bytes.Buffer
			err := WriteDepartmentsCSV(&buf, Departments(ds.All(), cfg), cfg)

			Convey("Then the summary file layout is used", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(lines[0], ShouldEqual, "Department,TotalRetained,TechnovaRetained,Tenure15+,ARated,TotalSalary,TotalOutput")
				So(lines[1], ShouldEqual, "Eng,2,1,1,1,300,30")
				So(lines, ShouldHaveLength, 4)
			})
		})
	})
}
