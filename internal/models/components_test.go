package models

import (
	"context"
	"math"
	"testing"

	gfd "gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/scope"
)

func solve(t *testing.T, p *Problem, opts fd.Options) *mat.Dense {
	t.Helper()
	ctx := context.Background()
	if err := p.Baseline(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	asm, err := p.Assemble(opts)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := asm.CalcDerivatives(ctx, true, false, false); err != nil {
		t.Fatalf("derivatives: %v", err)
	}
	_, _, j := asm.ProvideJ()
	return j
}

func maxDiff(a, b mat.Matrix) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, math.Inf(1))
}

func TestParaboloidGradient(t *testing.T) {
	tests := []struct {
		form fd.Form
		step float64
		tol  float64
	}{
		{fd.Forward, 1e-6, 1e-4},
		{fd.Central, 1e-4, 1e-8},
		{fd.ComplexStep, 1e-20, 1e-12},
	}
	for _, tt := range tests {
		t.Run(tt.form.String(), func(t *testing.T) {
			p, err := NewRegistry().Get("paraboloid", nil)
			if err != nil {
				t.Fatal(err)
			}
			opts := fd.DefaultOptions()
			opts.Form, opts.Step = tt.form, tt.step
			j := solve(t, p, opts)

			if math.Abs(j.At(0, 0)+3) > tt.tol*3 {
				t.Errorf("expected df/dx -3, got %g", j.At(0, 0))
			}
			if math.Abs(j.At(0, 1)-11) > tt.tol*11 {
				t.Errorf("expected df/dy 11, got %g", j.At(0, 1))
			}
		})
	}
}

func TestParaboloidLinearApproximation(t *testing.T) {
	ctx := context.Background()
	sc := scope.NewTree()
	p := NewParaboloid("p")
	if err := p.Declare(sc, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := p.CalcDerivatives(ctx, sc, true, false, false); err != nil {
		t.Fatal(err)
	}
	if err := sc.Set(p.X, scope.Float(2)); err != nil {
		t.Fatal(err)
	}

	if err := p.Execute(ctx, sc, 1); err != nil {
		t.Fatal(err)
	}
	lin, _ := scope.RealOf(sc, p.F)
	if err := p.Execute(ctx, sc, 0); err != nil {
		t.Fatal(err)
	}
	full, _ := scope.RealOf(sc, p.F)

	// f(1,1) = 27, tangent slope -3 in x, curvature 1 in x
	if lin != 24 {
		t.Errorf("expected tangent-plane value 24, got %g", lin)
	}
	if full != 25 {
		t.Errorf("expected full value 25, got %g", full)
	}
}

func TestVarTreeJacobian(t *testing.T) {
	p, err := NewRegistry().Get("vartree", nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := fd.DefaultOptions()
	opts.Form = fd.Central
	j := solve(t, p, opts)

	want := mat.NewDense(2, 3, []float64{2, 3, 4, 2, 3, 4})
	if d := maxDiff(j, want); d > 1e-6 {
		t.Errorf("expected %v, got %v", mat.Formatted(want), mat.Formatted(j))
	}
}

func TestTiedGroup(t *testing.T) {
	p, err := NewRegistry().Get("tied", nil)
	if err != nil {
		t.Fatal(err)
	}
	j := solve(t, p, fd.DefaultOptions())
	want, _ := p.Analytic(context.Background())
	if d := maxDiff(j, want); d > 1e-5 {
		t.Errorf("expected %v, got %v", mat.Formatted(want), mat.Formatted(j))
	}
}

func TestFlowMapAgainstGonum(t *testing.T) {
	p, err := NewRegistry().Get("vanderpol", nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := fd.DefaultOptions()
	opts.Form, opts.Step = fd.ComplexStep, 1e-20
	j := solve(t, p, opts)

	flow := p.Components[0].(*FlowMap)
	rk := NewRK4()
	f := func(y, x []float64) {
		s := make(State, len(x))
		for i, v := range x {
			s[i] = complex(v, 0)
		}
		tt := 0.0
		steps := int(math.Round(flow.Duration / flow.Dt))
		for i := 0; i < steps; i++ {
			s = rk.Step(flow.Model, s, tt, flow.Dt)
			tt += flow.Dt
		}
		for i := range y {
			y[i] = real(s[i])
		}
	}
	oracle := mat.NewDense(2, 2, nil)
	gfd.Jacobian(oracle, f, flow.Model.DefaultState(), &gfd.JacobianSettings{Formula: gfd.Central})

	if d := maxDiff(j, oracle); d > 1e-5 {
		t.Errorf("flow map Jacobian differs from gonum by %g:\n%v\n%v", d, mat.Formatted(j), mat.Formatted(oracle))
	}
}

func TestStatusSkipped(t *testing.T) {
	p, err := NewRegistry().Get("pendulum", nil)
	if err != nil {
		t.Fatal(err)
	}
	j := solve(t, p, fd.DefaultOptions())
	if r, c := j.Dims(); r != 2 || c != 2 {
		t.Errorf("expected 2x2 Jacobian with the status output skipped, got %dx%d", r, c)
	}
	v, _ := p.Scope.Get("watch.status")
	if v.Opaque != "ok" {
		t.Errorf("expected status ok, got %v", v.Opaque)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.List() {
		t.Run(name, func(t *testing.T) {
			p, err := r.Get(name, nil)
			if err != nil {
				t.Fatal(err)
			}
			if p.Name != name || p.Description == "" {
				t.Errorf("expected name and description, got %q %q", p.Name, p.Description)
			}
			if err := p.Baseline(context.Background()); err != nil {
				t.Fatal(err)
			}
		})
	}
	if _, err := r.Get("nope", nil); err == nil {
		t.Error("expected unknown model error")
	}
	if _, err := r.Get("lorenz", map[string]float64{"nope": 1}); err == nil {
		t.Error("expected unknown parameter error")
	}
}
