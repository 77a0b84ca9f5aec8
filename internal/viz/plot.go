package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fdjac/internal/analysis"
)

// errorFloor keeps exact (zero-error) points on the plot.
const errorFloor = 1e-17

// PlotConvergence draws log10 of each form's error across the sweep, steps
// increasing to the right.
func PlotConvergence(curves []analysis.Curve, width, height int) string {
	if len(curves) == 0 {
		return Subtle.Render("no data")
	}

	series := make([][]float64, 0, len(curves))
	names := make([]string, 0, len(curves))
	var first []analysis.Point
	for _, c := range curves {
		if len(c.Points) == 0 {
			continue
		}
		if first == nil {
			first = c.Points
		}
		s := make([]float64, len(c.Points))
		for i, p := range c.Points {
			s[i] = math.Log10(math.Max(p.Error, errorFloor))
		}
		series = append(series, s)
		names = append(names, fmt.Sprintf("%s (best %.1e @ %.0e)", c.Form, c.Best.Error, c.Best.Step))
	}
	if len(series) == 0 {
		return Subtle.Render("no data")
	}

	caption := fmt.Sprintf("log10 error, step %.0e → %.0e: %s",
		first[0].Step, first[len(first)-1].Step, strings.Join(names, ", "))
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}
