package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/derive"
	"github.com/okian/castle/internal/domain/schema"
)

func files(dir string) Files {
	return Files{
		Dir:      dir,
		Primary:  "cleaned_castle_of_insights.csv",
		Summary:  "department_retained_summary.csv",
		Workbook: "optimization_analysis.xlsx",
		Sheet:    "Retained_Employees",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeWorkbook(t *testing.T, path string, sheets map[string][][]any, order []string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			row := row
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestLoaderPriority(t *testing.T) {
	convey.Convey("Given a data directory", t, func() {
		dir := t.TempDir()
		fs := files(dir)
		ctx := context.Background()

		convey.Convey("When the primary file is present", func() {
			writeFile(t, filepath.Join(dir, fs.Primary), "Dept ,Tenure (Years),Rating\nEng,3,A\nEng,20,B\n")
			writeFile(t, filepath.Join(dir, fs.Summary), "Department,TotalRetained\nEng,2\n")

			ds, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then it is used and normalized", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.Source().Kind, convey.ShouldEqual, dataset.KindPrimary)
				convey.So(ds.Columns(), convey.ShouldResemble, []string{schema.Department, schema.Tenure, schema.WorkRating, schema.TenureGroup})
				g, _ := ds.Text(1, schema.TenureGroup)
				convey.So(g, convey.ShouldEqual, derive.GroupSenior)
			})
		})

		convey.Convey("When only the summary file is present", func() {
			writeFile(t, filepath.Join(dir, fs.Summary), "Department,TotalRetained,TechnovaRetained\nEng,2,1\nOps,3,0\n")

			ds, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then the summary is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.Source().Kind, convey.ShouldEqual, dataset.KindSummary)
				convey.So(ds.Len(), convey.ShouldEqual, 2)
				convey.So(ds.Present(), convey.ShouldResemble, []string{schema.Department})
			})
		})

		convey.Convey("When the primary file exists but is malformed", func() {
			writeFile(t, filepath.Join(dir, fs.Primary), "Department,Tenure\n\"Eng,3\n")
			writeFile(t, filepath.Join(dir, fs.Summary), "Department,TotalRetained\nEng,2\n")

			ds, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then it is skipped in favour of the next source", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.Source().Kind, convey.ShouldEqual, dataset.KindSummary)
			})
		})

		convey.Convey("When only a workbook with the named sheet is present", func() {
			writeWorkbook(t, filepath.Join(dir, fs.Workbook), map[string][][]any{
				"Overview":           {{"Note"}, {"ignore me"}},
				"Retained_Employees": {{"Dept", "Tenure", "Annual Salary"}, {"Eng", 3, 1000}, {"Ops", 16}},
			}, []string{"Overview", "Retained_Employees"})

			ds, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then the named sheet is read and ragged rows padded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.Source().Kind, convey.ShouldEqual, dataset.KindWorkbook)
				convey.So(ds.Source().Sheet, convey.ShouldEqual, "Retained_Employees")
				convey.So(ds.Len(), convey.ShouldEqual, 2)
				s, ok := ds.Number(0, schema.Salary)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s, convey.ShouldEqual, 1000)
				_, ok = ds.Number(1, schema.Salary)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the workbook lacks the named sheet", func() {
			writeWorkbook(t, filepath.Join(dir, fs.Workbook), map[string][][]any{
				"Data": {{"Department", "Tenure"}, {"HR", 7}},
			}, []string{"Data"})

			ds, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then the first sheet is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ds.Source().Sheet, convey.ShouldEqual, "Data")
				g, _ := ds.Text(0, schema.TenureGroup)
				convey.So(g, convey.ShouldEqual, derive.GroupMid)
			})
		})

		convey.Convey("When no source exists", func() {
			_, err := NewLoader(fs.Candidates()).Load(ctx)

			convey.Convey("Then a data source error names every path", func() {
				convey.So(errors.Is(err, schema.ErrDataSource), convey.ShouldBeTrue)
				var dse *schema.DataSourceError
				convey.So(errors.As(err, &dse), convey.ShouldBeTrue)
				convey.So(dse.Paths(), convey.ShouldHaveLength, 3)
				for _, c := range fs.Candidates() {
					convey.So(err.Error(), convey.ShouldContainSubstring, c.Path)
				}
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := NewLoader(fs.Candidates()).Load(cctx)

			convey.Convey("Then loading stops", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func TestDecodeCSV(t *testing.T) {
	convey.Convey("Given CSV input", t, func() {
		convey.Convey("Then an empty input is rejected", func() {
			_, err := DecodeCSV(strings.NewReader(""))
			convey.So(errors.Is(err, ErrEmpty), convey.ShouldBeTrue)
		})

		convey.Convey("Then ragged rows are accepted", func() {
			tb, err := DecodeCSV(strings.NewReader("a,b\n1\n2,3,4\n"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(tb.Len(), convey.ShouldEqual, 2)
			convey.So(tb.Columns(), convey.ShouldResemble, []string{"a", "b"})
		})
	})
}
