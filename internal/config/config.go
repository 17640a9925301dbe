// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Keys are flat snake_case names shared by YAML files and CASTLE_ env vars.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// DataDir is the directory that holds the candidate data files.
	DataDir string `koanf:"data_dir"`

	// PrimaryFile is the cleaned per-employee CSV, tried first.
	PrimaryFile string `koanf:"primary_file" validate:"required"`

	// SummaryFile is the department summary CSV, tried second.
	SummaryFile string `koanf:"summary_file" validate:"required"`

	// WorkbookFile is the optimization workbook, tried last.
	WorkbookFile string `koanf:"workbook_file" validate:"required"`

	// WorkbookSheet is the preferred sheet; the first sheet is used otherwise.
	WorkbookSheet string `koanf:"workbook_sheet"`

	// HighlightCompany is counted separately in the department summary.
	HighlightCompany string `koanf:"highlight_company" validate:"required"`

	// TopRating is counted separately in the department summary.
	TopRating string `koanf:"top_rating" validate:"required"`

	// SeniorTenure and ExperiencedTenure are the seniority thresholds in years.
	SeniorTenure      float64 `koanf:"senior_tenure" validate:"gte=0"`
	ExperiencedTenure float64 `koanf:"experienced_tenure" validate:"gte=0"`

	// FitPoints is the number of samples drawn along the fit line.
	FitPoints int `koanf:"fit_points" validate:"gte=2,lte=1000"`

	// ChartWidth and ChartHeight size rendered PNG charts.
	ChartWidth  int `koanf:"chart_width" validate:"gte=100,lte=4000"`
	ChartHeight int `koanf:"chart_height" validate:"gte=100,lte=4000"`

	// MaxRows caps GET /api/rows?limit.
	MaxRows int `koanf:"max_rows" validate:"gte=1"`

	// WSReadLimit bounds the size of one websocket message in bytes.
	WSReadLimit int64 `koanf:"ws_read_limit" validate:"gte=512"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		DataDir:           ".",
		PrimaryFile:       "cleaned_castle_of_insights.csv",
		SummaryFile:       "department_retained_summary.csv",
		WorkbookFile:      "optimization_analysis.xlsx",
		WorkbookSheet:     "Retained_Employees",
		HighlightCompany:  "Technova",
		TopRating:         "A",
		SeniorTenure:      15,
		ExperiencedTenure: 5,
		FitPoints:         50,
		ChartWidth:        800,
		ChartHeight:       480,
		MaxRows:           1000,
		WSReadLimit:       65536,
	}
}
