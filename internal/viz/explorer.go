package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/analysis"
	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/models"
)

const (
	stateMenu = iota
	stateResult
)

var allForms = []fd.Form{fd.Forward, fd.Backward, fd.Central, fd.ComplexStep}

// Explorer is a Bubble Tea model: pick a registered problem, then
// differentiate it with any form and step.
type Explorer struct {
	ctx    context.Context
	reg    *models.Registry
	names  []string
	cursor int
	state  int

	selected string
	form     fd.Form
	step     float64
	theme    int
	busy     bool

	jac      *fd.Jacobian
	analytic *mat.Dense
	evals    int
	curves   []analysis.Curve
	err      error

	width, height int
}

type solvedMsg struct {
	jac      *fd.Jacobian
	analytic *mat.Dense
	evals    int
	err      error
}

type sweptMsg struct {
	curves []analysis.Curve
	err    error
}

func NewExplorer(ctx context.Context, reg *models.Registry) Explorer {
	return Explorer{
		ctx:    ctx,
		reg:    reg,
		names:  reg.List(),
		form:   fd.Forward,
		step:   fd.DefaultStep,
		width:  80,
		height: 24,
	}
}

func (m Explorer) Init() tea.Cmd { return nil }

func (m Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case solvedMsg:
		m.busy = false
		m.jac, m.analytic, m.evals, m.err = msg.jac, msg.analytic, msg.evals, msg.err
	case sweptMsg:
		m.busy = false
		m.curves, m.err = msg.curves, msg.err
	}
	return m, nil
}

func (m Explorer) handleKey(msg tea.KeyMsg) (Explorer, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		return m, nil
	}
	if m.state == stateMenu {
		return m.menuKey(msg)
	}
	return m.resultKey(msg)
}

func (m Explorer) menuKey(msg tea.KeyMsg) (Explorer, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.names) == 0 {
			return m, nil
		}
		m.selected = m.names[m.cursor]
		m.state = stateResult
		m.curves = nil
		return m.solve()
	}
	return m, nil
}

func (m Explorer) resultKey(msg tea.KeyMsg) (Explorer, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.state = stateMenu
		m.jac, m.err, m.curves = nil, nil, nil
		return m, nil
	case "f":
		m.form = allForms[(int(m.form)+1)%len(allForms)]
		if m.form == fd.ComplexStep {
			m.step = 1e-20
		} else if m.step < 1e-12 {
			m.step = fd.DefaultStep
		}
		return m.solve()
	case "+", "=":
		m.step *= 10
		return m.solve()
	case "-":
		m.step /= 10
		return m.solve()
	case "enter", "r":
		return m.solve()
	case "s":
		m.busy = true
		return m, sweep(m.ctx, m.reg, m.selected)
	}
	return m, nil
}

func (m Explorer) solve() (Explorer, tea.Cmd) {
	m.busy = true
	return m, solve(m.ctx, m.reg, m.selected, m.form, m.step)
}

func solve(ctx context.Context, reg *models.Registry, name string, form fd.Form, step float64) tea.Cmd {
	return func() tea.Msg {
		p, err := reg.Get(name, nil)
		if err != nil {
			return solvedMsg{err: err}
		}
		if err := p.Baseline(ctx); err != nil {
			return solvedMsg{err: err}
		}
		opts := fd.DefaultOptions()
		opts.Form, opts.Step = form, step
		asm, err := p.Assemble(opts)
		if err != nil {
			return solvedMsg{err: err}
		}
		asm.FFDOrder = 0
		jac, err := asm.Engine().Solve(ctx, p.Scope, "explore")
		if err != nil {
			return solvedMsg{err: err}
		}
		msg := solvedMsg{jac: jac, evals: asm.Engine().Evaluations()}
		if p.Analytic != nil {
			msg.analytic, msg.err = p.Analytic(ctx)
		}
		return msg
	}
}

func sweep(ctx context.Context, reg *models.Registry, name string) tea.Cmd {
	return func() tea.Msg {
		p, err := reg.Get(name, nil)
		if err != nil {
			return sweptMsg{err: err}
		}
		if err := p.Baseline(ctx); err != nil {
			return sweptMsg{err: err}
		}
		asm, err := p.Assemble(fd.DefaultOptions())
		if err != nil {
			return sweptMsg{err: err}
		}
		asm.FFDOrder = 0
		var ref *mat.Dense
		if p.Analytic != nil {
			if ref, err = p.Analytic(ctx); err != nil {
				return sweptMsg{err: err}
			}
		}
		curves, err := analysis.Convergence(ctx, asm, p.Scope, p.Inputs, p.Outputs, ref,
			[]fd.Form{fd.Forward, fd.Central, fd.ComplexStep}, analysis.StepRange(1e-14, 1e-1, 27))
		return sweptMsg{curves: curves, err: err}
	}
}

func (m Explorer) View() string {
	theme := Themes[m.theme]
	var b strings.Builder
	b.WriteString(GradientText("fdjac explorer", theme.Primary, theme.Secondary))
	b.WriteString("\n\n")

	if m.state == stateMenu {
		b.WriteString(m.menuView(theme))
		b.WriteString("\n\n" + KeyHint.Render("↑/↓ select · enter differentiate · t theme · q quit"))
		return GlassPanel.Render(b.String())
	}

	b.WriteString(HeaderStyle.Render(m.selected))
	b.WriteString("\n")
	b.WriteString(MetricLabel.Render("form ") + MetricValue.Render(m.form.String()))
	b.WriteString(MetricLabel.Render("  step ") + MetricValue.Render(fmt.Sprintf("%.0e", m.step)))
	if m.jac != nil {
		b.WriteString(MetricLabel.Render("  evaluations ") + MetricValue.Render(fmt.Sprint(m.evals)))
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("error: " + m.err.Error()))
	case m.busy:
		b.WriteString(Subtle.Render("computing…"))
	case m.jac != nil:
		dense := m.jac.ToDense()
		b.WriteString(RenderJacobian(dense, m.jac.RowLabels(), m.jac.ColLabels(), theme))
		if m.analytic != nil {
			b.WriteString("\n\n" + MetricLabel.Render("max |J - J_exact| ") +
				MetricValue.Render(fmt.Sprintf("%.3e", analysis.MaxAbsDiff(dense, m.analytic))))
		}
	}

	if len(m.curves) > 0 {
		b.WriteString("\n" + Rule("step sweep", min(m.width-8, 60)) + "\n")
		for _, c := range m.curves {
			b.WriteString(fmt.Sprintf("%-13s %s\n", c.Form, ErrorSparkline(c.Points)))
		}
	}

	b.WriteString("\n" + KeyHint.Render("f form · +/- step · s sweep · t theme · esc back · q quit"))
	return GlassPanel.Render(b.String())
}

func (m Explorer) menuView(theme Theme) string {
	cur := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	var lines []string
	for i, name := range m.names {
		desc := Subtle.Render(m.reg.Describe(name))
		if i == m.cursor {
			lines = append(lines, cur.Render("▸ "+name)+"  "+desc)
			continue
		}
		lines = append(lines, "  "+name+"  "+desc)
	}
	return strings.Join(lines, "\n")
}
