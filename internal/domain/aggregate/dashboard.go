package aggregate

import (
	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/schema"
)

// Config holds the thresholds and labels used by the aggregates.
type Config struct {
	Highlight         string
	TopRating         string
	SeniorTenure      float64
	ExperiencedTenure float64
	FitPoints         int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Highlight:         "Technova",
		TopRating:         "A",
		SeniorTenure:      15,
		ExperiencedTenure: 5,
		FitPoints:         50,
	}
}

// Chart names.
const (
	ChartCompany      = "company"
	ChartRating       = "rating"
	ChartTenure       = "tenure"
	ChartSalaryOutput = "salary-output"
	ChartTenureOutput = "tenure-output"
	ChartDepartments  = "departments"
)

// Charts lists every chart name.
var Charts = []string{ChartCompany, ChartRating, ChartTenure, ChartSalaryOutput, ChartTenureOutput, ChartDepartments}

// Dashboard is everything the dashboard shows for one filter state. A nil
// chart field means the chart is disabled because a column is absent.
type Dashboard struct {
	Cards        Cards           `json:"cards"`
	Company      []Count         `json:"company"`
	Rating       []Count         `json:"rating"`
	TenureRating []GroupCounts   `json:"tenure_rating"`
	SalaryOutput *Scatter        `json:"salary_output"`
	TenureOutput *Scatter        `json:"tenure_output"`
	Departments  []DepartmentRow `json:"departments"`
	Disabled     []string        `json:"disabled"`
}

// Compute builds the dashboard for an already filtered view.
func Compute(v dataset.View, cfg Config) Dashboard {
	colors := RatingColors(v.Dataset())
	d := Dashboard{
		Cards:        SummaryCards(v),
		Company:      CompanySplit(v),
		Rating:       RatingDistribution(v),
		TenureRating: TenureByRating(v),
		SalaryOutput: ScatterOf(v, schema.Salary, schema.Output, colors),
		TenureOutput: ScatterOf(v, schema.Tenure, schema.Output, colors),
		Departments:  Departments(v, cfg),
		Disabled:     []string{},
	}
	if d.SalaryOutput != nil {
		d.SalaryOutput.Fit = Fit(d.SalaryOutput.Points, cfg.FitPoints)
	}

	enabled := map[string]bool{
		ChartCompany:      d.Company != nil,
		ChartRating:       d.Rating != nil,
		ChartTenure:       d.TenureRating != nil,
		ChartSalaryOutput: d.SalaryOutput != nil,
		ChartTenureOutput: d.TenureOutput != nil,
		ChartDepartments:  d.Departments != nil,
	}
	for _, c := range Charts {
		if !enabled[c] {
			d.Disabled = append(d.Disabled, c)
		}
	}
	return d
}
