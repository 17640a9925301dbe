// Package render draws dashboard aggregates as PNG charts.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/castle/internal/domain/aggregate"
	"github.com/okian/castle/internal/domain/schema"
)

const (
	defaultWidth  = 800
	defaultHeight = 480
)

// Renderer draws charts with a fixed size.
type Renderer struct {
	width  int
	height int
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{width: defaultWidth, height: defaultHeight}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the named chart of d as PNG to w.
func (r *Renderer) Render(w io.Writer, name string, d aggregate.Dashboard) error {
	switch name {
	case aggregate.ChartCompany:
		if d.Company == nil {
			return ErrDisabled
		}
		return r.pie(w, "Company Split", d.Company)
	case aggregate.ChartRating:
		if d.Rating == nil {
			return ErrDisabled
		}
		return r.bars(w, "Work Rating Distribution", d.Rating)
	case aggregate.ChartTenure:
		if d.TenureRating == nil {
			return ErrDisabled
		}
		return r.stacked(w, "Rating by Tenure Group", d.TenureRating)
	case aggregate.ChartSalaryOutput:
		if d.SalaryOutput == nil {
			return ErrDisabled
		}
		return r.scatter(w, "Salary vs Output", d.SalaryOutput)
	case aggregate.ChartTenureOutput:
		if d.TenureOutput == nil {
			return ErrDisabled
		}
		return r.scatter(w, "Tenure vs Output", d.TenureOutput)
	case aggregate.ChartDepartments:
		if d.Departments == nil {
			return ErrDisabled
		}
		counts := make([]aggregate.Count, len(d.Departments))
		for i, dep := range d.Departments {
			counts[i] = aggregate.Count{Label: dep.Department, Count: dep.Total}
		}
		return r.bars(w, "Employees by Department", counts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}
}

func (r *Renderer) pie(w io.Writer, title string, counts []aggregate.Count) error {
	var values []chart.Value
	for i, c := range counts {
		if c.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Label, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: color(aggregate.Palette[i%len(aggregate.Palette)])},
		})
	}
	if len(values) == 0 {
		return ErrNotEnoughData
	}
	pc := chart.PieChart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Values: values,
	}
	return draw(pc.Render(chart.PNG, w))
}

func (r *Renderer) bars(w io.Writer, title string, counts []aggregate.Count) error {
	top := 0
	values := make([]chart.Value, len(counts))
	for i, c := range counts {
		values[i] = chart.Value{Label: c.Label, Value: float64(c.Count)}
		if c.Count > top {
			top = c.Count
		}
	}
	if top == 0 {
		return ErrNotEnoughData
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: float64(top)}},
		Bars:       values,
	}
	return draw(bc.Render(chart.PNG, w))
}

func (r *Renderer) stacked(w io.Writer, title string, groups []aggregate.GroupCounts) error {
	var bars []chart.StackedBar
	for _, g := range groups {
		var values []chart.Value
		for i, c := range g.Counts {
			if c.Count == 0 {
				continue
			}
			values = append(values, chart.Value{
				Label: fmt.Sprintf("%s: %d", c.Label, c.Count),
				Value: float64(c.Count),
				Style: chart.Style{FillColor: color(aggregate.Palette[i%len(aggregate.Palette)])},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: g.Group, Values: values})
	}
	if len(bars) == 0 {
		return ErrNotEnoughData
	}
	sbc := chart.StackedBarChart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Bars:   bars,
	}
	return draw(sbc.Render(chart.PNG, w))
}

func (r *Renderer) scatter(w io.Writer, title string, s *aggregate.Scatter) error {
	if !spread(s.Points) {
		return ErrNotEnoughData
	}

	byRating := make(map[string]*chart.ContinuousSeries)
	for _, p := range s.Points {
		name := p.Rating
		if name == "" {
			name = "unrated"
		}
		cs, ok := byRating[name]
		if !ok {
			cs = &chart.ContinuousSeries{
				Name: name,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    color(p.Color),
				},
			}
			byRating[name] = cs
		}
		cs.XValues = append(cs.XValues, p.X)
		cs.YValues = append(cs.YValues, p.Y)
	}

	names := make([]string, 0, len(byRating))
	for n := range byRating {
		names = append(names, n)
	}
	sort.Strings(names)
	series := make([]chart.Series, 0, len(names)+1)
	for _, n := range names {
		series = append(series, *byRating[n])
	}

	if s.Fit != nil {
		fit := chart.ContinuousSeries{
			Name:  "fit",
			Style: chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 2, StrokeDashArray: []float64{5, 5}},
		}
		for _, p := range s.Fit.Points {
			fit.XValues = append(fit.XValues, p.X)
			fit.YValues = append(fit.YValues, p.Y)
		}
		series = append(series, fit)
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: axisName(s.X)},
		YAxis:      chart.YAxis{Name: axisName(s.Y)},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return draw(ch.Render(chart.PNG, w))
}

// spread reports whether the points span a non-zero range on both axes.
func spread(points []aggregate.Point) bool {
	if len(points) < 2 {
		return false
	}
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return maxX > minX && maxY > minY
}

func axisName(col string) string {
	switch col {
	case schema.Output:
		return "Estimated Output"
	case schema.Tenure:
		return "Tenure (years)"
	default:
		return col
	}
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func draw(err error) error {
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
