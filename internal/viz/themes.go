package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for tables and the explorer.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ffff00"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666666"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ff8800"),
		Error:     lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
	}

	Themes = []Theme{ThemeCyberpunk, ThemeMinimal, ThemeOcean}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Heat picks a style for a value whose magnitude is norm of the largest
// entry: zero is muted, small entries cool, dominant entries hot.
func (t Theme) Heat(norm float64) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch {
	case norm == 0:
		return s.Foreground(t.Muted)
	case norm < 0.1:
		return s.Foreground(t.Secondary)
	case norm < 0.5:
		return s.Foreground(t.Text)
	case norm < 0.9:
		return s.Foreground(t.Accent)
	}
	return s.Foreground(t.Primary).Bold(true)
}
