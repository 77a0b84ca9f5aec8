package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fdjac/internal/analysis"
)

var (
	GlassPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(1, 2)

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
)

// GradientText colors text by interpolating between two hex colors.
func GradientText(text string, startColor, endColor lipgloss.Color) string {
	if len(text) == 0 {
		return ""
	}

	sr, sg, sb := parseHex(string(startColor))
	er, eg, eb := parseHex(string(endColor))

	var result strings.Builder
	runes := []rune(text)
	n := len(runes)
	for i, c := range runes {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		r := int(float64(sr) + t*float64(er-sr))
		g := int(float64(sg) + t*float64(eg-sg))
		b := int(float64(sb) + t*float64(eb-sb))

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(r, g, b)))
		result.WriteString(style.Render(string(c)))
	}
	return result.String()
}

// ErrorSparkline draws one bar per sweep point, scaled on log10 of the error
// between the floor and the largest error in the sweep. Bars are colored by
// absolute error so curves stay comparable across forms.
func ErrorSparkline(points []analysis.Point) string {
	if len(points) == 0 {
		return Subtle.Render("no points")
	}

	bars := []rune("▁▂▃▄▅▆▇█")
	floor := math.Log10(errorFloor)
	top := floor + 1
	for _, p := range points {
		top = max(top, math.Log10(math.Max(p.Error, errorFloor)))
	}

	var b strings.Builder
	for _, p := range points {
		e := math.Max(p.Error, errorFloor)
		idx := int((math.Log10(e) - floor) / (top - floor) * float64(len(bars)-1))
		c := string(bars[max(0, min(idx, len(bars)-1))])
		switch {
		case math.IsNaN(p.Error) || e > 1e-4:
			b.WriteString(SparkHigh.Render(c))
		case e > 1e-10:
			b.WriteString(SparkMid.Render(c))
		default:
			b.WriteString(SparkLow.Render(c))
		}
	}
	return b.String()
}

// Rule is a horizontal rule of the given width with title set into it.
func Rule(title string, width int) string {
	label := " " + title + " "
	rest := max(0, width-len([]rune(label))-2)
	return Subtle.Render("──" + label + strings.Repeat("─", rest))
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	r = parseHexByte(hex[1:3])
	g = parseHexByte(hex[3:5])
	b = parseHexByte(hex[5:7])
	return
}

func parseHexByte(s string) int {
	var val int
	for _, c := range s {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

func hexColor(r, g, b int) string {
	return "#" + hexByte(r) + hexByte(g) + hexByte(b)
}

func hexByte(v int) string {
	v = max(0, min(v, 255))
	const hex = "0123456789abcdef"
	return string(hex[v/16]) + string(hex[v%16])
}
