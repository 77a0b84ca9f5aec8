package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/fd"
)

const cellWidth = 12

// RenderJacobian draws J as a labelled table. Entries are shaded by their
// magnitude relative to the largest one.
func RenderJacobian(j mat.Matrix, rowLabels, colLabels []string, theme Theme) string {
	r, c := j.Dims()
	peak := 0.0
	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			peak = math.Max(peak, math.Abs(j.At(i, k)))
		}
	}

	lw := 0
	for _, l := range rowLabels {
		lw = max(lw, len(l))
	}

	head := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	label := lipgloss.NewStyle().Foreground(theme.Muted)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", lw+1))
	for _, l := range colLabels {
		b.WriteString(head.Render(fmt.Sprintf("%*s", cellWidth, truncate(l, cellWidth-1))))
	}
	b.WriteByte('\n')

	for i := 0; i < r; i++ {
		b.WriteString(label.Render(fmt.Sprintf("%-*s", lw, labelAt(rowLabels, i))))
		b.WriteByte(' ')
		for k := 0; k < c; k++ {
			v := j.At(i, k)
			norm := 0.0
			if peak > 0 {
				norm = math.Abs(v) / peak
			}
			b.WriteString(theme.Heat(norm).Render(fmt.Sprintf("%*.*g", cellWidth, 6, v)))
		}
		if i < r-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderAccumulator lists directional results, one output per line.
func RenderAccumulator(acc fd.Accumulator, theme Theme) string {
	names := make([]string, 0, len(acc))
	for n := range acc {
		names = append(names, n)
	}
	sort.Strings(names)

	var lines []string
	for _, n := range names {
		v := acc[n]
		vals := make([]string, len(v.Data))
		for i, x := range v.Reals() {
			vals[i] = fmt.Sprintf("%.8g", x)
		}
		lines = append(lines, MetricLabel.Render(n+" = ")+
			lipgloss.NewStyle().Foreground(theme.Accent).Render("["+strings.Join(vals, ", ")+"]"))
	}
	return strings.Join(lines, "\n")
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("row %d", i)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n+1:]
}
