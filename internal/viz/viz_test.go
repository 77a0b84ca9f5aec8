package viz

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/analysis"
	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/models"
	"github.com/san-kum/fdjac/internal/scope"
)

func TestRenderJacobian(t *testing.T) {
	j := mat.NewDense(2, 2, []float64{-3, 11, 0, 0.5})
	out := RenderJacobian(j, []string{"f", "g"}, []string{"x", "y"}, ThemeMinimal)

	for _, want := range []string{"x", "y", "f", "g", "-3", "11", "0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
	if lines := strings.Split(out, "\n"); len(lines) != 3 {
		t.Errorf("expected header and 2 rows, got %d lines", len(lines))
	}
}

func TestRenderAccumulator(t *testing.T) {
	out := RenderAccumulator(fd.Accumulator{"y": scope.Vector(1, 2), "a": scope.Float(-3)}, ThemeOcean)
	if strings.Index(out, "a = ") > strings.Index(out, "y = ") {
		t.Errorf("expected outputs sorted by name, got %q", out)
	}
	if !strings.Contains(out, "[1, 2]") || !strings.Contains(out, "[-3]") {
		t.Errorf("unexpected accumulator rendering %q", out)
	}
}

func TestPlotConvergence(t *testing.T) {
	curves := []analysis.Curve{
		{Form: fd.Forward, Points: []analysis.Point{{Step: 1e-8, Error: 1e-7}, {Step: 1e-4, Error: 1e-4}, {Step: 1e-1, Error: 1e-1}}, Best: analysis.Point{Step: 1e-8, Error: 1e-7}},
		{Form: fd.ComplexStep, Points: []analysis.Point{{Step: 1e-8, Error: 0}, {Step: 1e-4, Error: 1e-16}, {Step: 1e-1, Error: 1e-3}}, Best: analysis.Point{Step: 1e-8}},
	}
	out := PlotConvergence(curves, 40, 8)
	if !strings.Contains(out, "forward") || !strings.Contains(out, "complex_step") {
		t.Errorf("expected legend in caption:\n%s", out)
	}
	if PlotConvergence(nil, 40, 8) == "" {
		t.Error("expected placeholder for empty input")
	}
}

func TestErrorSparkline(t *testing.T) {
	pts := []analysis.Point{{Step: 1e-8, Error: 0}, {Step: 1e-4, Error: 1e-9}, {Step: 1e-1, Error: 1e-2}}
	out := ErrorSparkline(pts)
	if !strings.Contains(out, "▁") || !strings.Contains(out, "█") {
		t.Errorf("expected lowest and highest bars, got %q", out)
	}
	if !strings.Contains(ErrorSparkline(nil), "no points") {
		t.Error("expected placeholder for an empty sweep")
	}
	if r := Rule("step sweep", 30); !strings.Contains(r, "step sweep") {
		t.Errorf("expected title in rule, got %q", r)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("expected fallback theme")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
}

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(t *testing.T, m Explorer, msg tea.KeyMsg) Explorer {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Explorer)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, quit := out.(tea.QuitMsg); !quit {
				next, _ = m.Update(out)
				m = next.(Explorer)
			}
		}
	}
	return m
}

func TestExplorerFlow(t *testing.T) {
	reg := models.NewRegistry()
	m := NewExplorer(context.Background(), reg)
	if !strings.Contains(m.View(), "paraboloid") {
		t.Fatalf("expected model list:\n%s", m.View())
	}

	for m.names[m.cursor] != "paraboloid" {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != stateResult || m.jac == nil || m.err != nil {
		t.Fatalf("expected a solved Jacobian, got state %d err %v", m.state, m.err)
	}
	if m.evals != 2 {
		t.Errorf("expected 2 evaluations for forward, got %d", m.evals)
	}
	view := m.View()
	if !strings.Contains(view, "comp.f_xy") || !strings.Contains(view, "max |J - J_exact|") {
		t.Errorf("unexpected result view:\n%s", view)
	}

	m = press(t, m, keys("f"))
	if m.form != fd.Backward {
		t.Errorf("expected backward after one cycle, got %s", m.form)
	}
	m = press(t, m, keys("-"))
	if m.step != fd.DefaultStep/10 {
		t.Errorf("expected step shrunk tenfold, got %g", m.step)
	}
	m = press(t, m, keys("f"))
	m = press(t, m, keys("f"))
	if m.form != fd.ComplexStep || m.step != 1e-20 {
		t.Errorf("expected complex step at 1e-20, got %s %g", m.form, m.step)
	}
	if d := analysis.MaxAbsDiff(m.jac.ToDense(), m.analytic); d > 1e-12 {
		t.Errorf("expected exact complex-step Jacobian, off by %g", d)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.state != stateMenu {
		t.Error("expected esc to return to the menu")
	}

	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestExplorerSweep(t *testing.T) {
	m := NewExplorer(context.Background(), models.NewRegistry())
	for m.names[m.cursor] != "linear" {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, keys("s"))
	if m.err != nil {
		t.Fatal(m.err)
	}
	if len(m.curves) != 3 {
		t.Fatalf("expected 3 curves, got %d", len(m.curves))
	}
	if !strings.Contains(m.View(), "complex_step") {
		t.Error("expected sweep rows in view")
	}
}
