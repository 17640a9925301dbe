package aggregate

import (
	"github.com/okian/castle/internal/domain/dataset"
	"github.com/okian/castle/internal/domain/schema"
)

// Palette is the rating colour cycle.
var Palette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd"}

// UnratedColor is used for points without a rating.
const UnratedColor = "#7f7f7f"

// Point is one scatter point.
type Point struct {
	Row    int     `json:"row"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rating string  `json:"rating,omitempty"`
	Color  string  `json:"color"`
}

// XY is a bare coordinate.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is a least-squares fit sampled for drawing.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Points    []XY    `json:"points"`
}

// Scatter is a two-column scatter series with an optional fit.
type Scatter struct {
	X      string  `json:"x"`
	Y      string  `json:"y"`
	Points []Point `json:"points"`
	Fit    *Line   `json:"fit"`
}

// RatingColors assigns a palette colour to every distinct rating of ds, in
// sorted rating order. The assignment depends on the whole dataset so that
// colours stay put while filters change.
func RatingColors(ds *dataset.Dataset) map[string]string {
	out := make(map[string]string)
	if ds == nil || !ds.Has(schema.WorkRating) {
		return out
	}
	for i, r := range Distinct(ds.All(), schema.WorkRating) {
		out[r] = Palette[i%len(Palette)]
	}
	return out
}

// ScatterOf collects the rows of v where both x and y are numeric. nil when
// either column is absent.
func ScatterOf(v dataset.View, x, y string, colors map[string]string) *Scatter {
	ds := v.Dataset()
	if ds == nil || !ds.Has(x) || !ds.Has(y) {
		return nil
	}
	s := &Scatter{X: x, Y: y, Points: []Point{}}
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		xv, ok := ds.Number(row, x)
		if !ok {
			continue
		}
		yv, ok := ds.Number(row, y)
		if !ok {
			continue
		}
		p := Point{Row: row, X: xv, Y: yv, Color: UnratedColor}
		if r, ok := ds.Text(row, schema.WorkRating); ok {
			p.Rating = r
			if c, ok := colors[r]; ok {
				p.Color = c
			}
		}
		s.Points = append(s.Points, p)
	}
	return s
}

// minFitPairs is the number of complete pairs a fit needs to exceed.
const minFitPairs = 2

// Fit returns the least-squares line through the points, sampled at n evenly
// spaced x values between the smallest and largest x. nil when there are not
// more than two points or all x values are equal.
func Fit(points []Point, n int) *Line {
	if len(points) <= minFitPairs {
		return nil
	}
	if n < 2 {
		n = 2
	}

	var sx, sy float64
	minX, maxX := points[0].X, points[0].X
	for _, p := range points {
		sx += p.X
		sy += p.Y
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
	}
	cnt := float64(len(points))
	mx, my := sx/cnt, sy/cnt

	var sxx, sxy float64
	for _, p := range points {
		dx := p.X - mx
		sxx += dx * dx
		sxy += dx * (p.Y - my)
	}
	if sxx == 0 {
		return nil
	}

	l := &Line{Slope: sxy / sxx}
	l.Intercept = my - l.Slope*mx
	step := (maxX - minX) / float64(n-1)
	l.Points = make([]XY, n)
	for i := range l.Points {
		x := minX + step*float64(i)
		if i == n-1 {
			x = maxX
		}
		l.Points[i] = XY{X: x, Y: l.Slope*x + l.Intercept}
	}
	return l
}
