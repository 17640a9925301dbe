package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/castle/pkg/logger"
)

func init() {
	_ = logger.InitWithWriter(&bytes.Buffer{})
}

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := "Department,Tenure,Company_Origin,Work_Rating,Salary,output_est\n" +
		"Eng,20,Technova,A,100,10\n" +
		"Ops,3,Other,B,200,20\n"
	if err := os.WriteFile(filepath.Join(dir, "cleaned_castle_of_insights.csv"), []byte(data), 0o600); err != nil {
		t.Fatalf("write data: %v", err)
	}
	return dir
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	convey.Convey("Given a data directory with the primary file", t, func() {
		_ = os.Unsetenv("CASTLE_CONFIG")
		dir := dataDir(t)

		convey.Convey("When the report runs", func() {
			out, err := execute("--data-dir", dir)

			convey.Convey("Then it prints the report", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Castle of Insights")
				convey.So(out, convey.ShouldContainSubstring, "Departments")
			})
		})

		convey.Convey("When the report runs with an export path", func() {
			path := filepath.Join(t.TempDir(), "summary.csv")
			_, err := execute("--data-dir", dir, "--filter", "Department=Eng", "--export", path)

			convey.Convey("Then the filtered summary is written", func() {
				convey.So(err, convey.ShouldBeNil)
				data, err := os.ReadFile(path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, "Eng,1,1,1,1,100,10")
				convey.So(string(data), convey.ShouldNotContainSubstring, "Ops")
			})
		})

		convey.Convey("When the departments subcommand runs", func() {
			out, err := execute("departments", "--data-dir", dir)

			convey.Convey("Then the CSV goes to stdout", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Ops,1,0,0,0,200,20")
			})
		})

		convey.Convey("When a filter is malformed", func() {
			_, err := execute("--data-dir", dir, "--filter", "Department")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an empty data directory", t, func() {
		_, err := execute("--data-dir", t.TempDir())

		convey.Convey("Then the command fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load data")
		})
	})
}
