package schema

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/castle/internal/domain/table"
)

func hasRename(rs []Rename, want Rename) bool {
	for _, r := range rs {
		if r == want {
			return true
		}
	}
	return false
}

func TestResolve(t *testing.T) {
	convey.Convey("Given available columns and candidate aliases", t, func() {
		ratings := []string{"Work_Rating", "Rating", "Performance_Rating", "Performance"}

		convey.Convey("Then matching is case-insensitive", func() {
			col, ok := Resolve([]string{"name", "rating"}, ratings)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(col, convey.ShouldEqual, "rating")
		})

		convey.Convey("Then candidate preference wins over column order", func() {
			col, ok := Resolve([]string{"Performance", "Rating"}, ratings)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(col, convey.ShouldEqual, "Rating")
		})

		convey.Convey("Then the first equal column wins among case variants", func() {
			col, _ := Resolve([]string{"RATING", "rating"}, ratings)
			convey.So(col, convey.ShouldEqual, "RATING")
		})

		convey.Convey("Then substrings never match", func() {
			_, ok := Resolve([]string{"Work_Rating_2023", "MyRating"}, ratings)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then repeated calls give the same answer", func() {
			a, _ := Resolve([]string{"Dept", "department"}, []string{"Department", "Dept"})
			b, _ := Resolve([]string{"Dept", "department"}, []string{"Department", "Dept"})
			convey.So(a, convey.ShouldEqual, "department")
			convey.So(b, convey.ShouldEqual, a)
		})
	})
}

func TestCleanHeader(t *testing.T) {
	convey.Convey("Given messy raw headers", t, func() {
		got := CleanHeader([]string{" Dept ", "Tenure (Years)", "\ufeffRating", "Dept", "Dept"})

		convey.Convey("Then names are trimmed, underscored and deduplicated", func() {
			convey.So(got, convey.ShouldResemble, []string{"Dept", "Tenure_(Years)", "Rating", "Dept.1", "Dept.2"})
		})

		convey.Convey("Then composed and decomposed forms clean to the same name", func() {
			convey.So(CleanName("Caf\u00e9"), convey.ShouldEqual, CleanName("Cafe\u0301"))
		})
	})
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given the reference raw table", t, func() {
		tb := table.New([]string{"Dept ", "Tenure (Years)", "Rating"}, [][]string{
			{"Eng", "3", "A"},
			{"Eng", "20", "B"},
		})

		res, err := Normalize(tb)

		convey.Convey("Then the columns are canonical and in source order", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(tb.Columns(), convey.ShouldResemble, []string{Department, Tenure, WorkRating})
			convey.So(res.Present, convey.ShouldResemble, []string{Tenure, WorkRating, Department})
			convey.So(hasRename(res.Renames, Rename{From: "Tenure_(Years)", To: Tenure}), convey.ShouldBeTrue)
			convey.So(hasRename(res.Renames, Rename{From: "Dept", To: Department}), convey.ShouldBeTrue)
		})

		convey.Convey("Then tenure is numeric", func() {
			c, _ := tb.Column(Tenure)
			f, ok := c.Values[1].Float()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(f, convey.ShouldEqual, 20)
		})
	})

	convey.Convey("Given a table without most canonical fields", t, func() {
		tb := table.New([]string{"Name", "Dept"}, [][]string{{"Ann", "Eng"}})
		res, err := Normalize(tb)

		convey.Convey("Then absent fields are never fabricated", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Present, convey.ShouldResemble, []string{Department})
			convey.So(tb.Has(Tenure), convey.ShouldBeFalse)
			convey.So(tb.Has(Salary), convey.ShouldBeFalse)
			convey.So(tb.Columns(), convey.ShouldResemble, []string{"Name", Department})
		})
	})

	convey.Convey("Given unparseable numeric cells", t, func() {
		tb := table.New([]string{"Annual Salary", "Output"}, [][]string{
			{"1000", "n/a"},
			{"abc", "7.5"},
			{"", "8"},
		})
		res, err := Normalize(tb)

		convey.Convey("Then failures become missing and are counted", func() {
			convey.So(err, convey.ShouldBeNil)
			sal, _ := tb.Column(Salary)
			convey.So(sal.Values[1].IsMissing(), convey.ShouldBeTrue)
			convey.So(sal.Values[2].IsMissing(), convey.ShouldBeTrue)
			convey.So(res.WarningCounts(), convey.ShouldResemble, map[string]int{Output: 1, Salary: 1})
		})
	})

	convey.Convey("Given a header where an alias would collide with the canonical name", t, func() {
		tb := table.New([]string{"tenure", "Tenure"}, [][]string{{"1", "2"}})
		_, err := Normalize(tb)

		convey.Convey("Then a schema error is returned", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, ErrSchema), convey.ShouldBeTrue)
			var se *SchemaError
			convey.So(errors.As(err, &se), convey.ShouldBeTrue)
			convey.So(se.Column, convey.ShouldEqual, "tenure")
		})
	})
}

func TestDataSourceError(t *testing.T) {
	convey.Convey("Given a data source error with several attempts", t, func() {
		err := error(&DataSourceError{Attempts: []Attempt{
			{Path: "a.csv", Err: errors.New("not found")},
			{Path: "b.xlsx"},
		}})

		convey.Convey("Then it names every path and unwraps to the sentinel", func() {
			convey.So(err.Error(), convey.ShouldContainSubstring, "a.csv (not found)")
			convey.So(err.Error(), convey.ShouldContainSubstring, "b.xlsx")
			convey.So(errors.Is(err, ErrDataSource), convey.ShouldBeTrue)
			var dse *DataSourceError
			convey.So(errors.As(err, &dse), convey.ShouldBeTrue)
			convey.So(dse.Paths(), convey.ShouldResemble, []string{"a.csv", "b.xlsx"})
		})
	})
}
