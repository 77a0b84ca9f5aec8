package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/scope"
)

var ErrNoSteps = errors.New("analysis: no step sizes to sweep")

// Point is the Jacobian error observed at one step size.
type Point struct {
	Step  float64
	Error float64
}

// Curve is one form's error across the sweep.
type Curve struct {
	Form   fd.Form
	Points []Point
	Best   Point
}

// StepRange returns n step sizes spaced evenly in log10 between lo and hi.
func StepRange(lo, hi float64, n int) []float64 {
	if n <= 0 || lo <= 0 || hi <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	steps := make([]float64, n)
	a, b := math.Log10(lo), math.Log10(hi)
	for i := range steps {
		steps[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}
	return steps
}

// Reference computes a high-accuracy Jacobian to measure the sweep against:
// a complex step when the system allows it, a central difference otherwise.
func Reference(ctx context.Context, sys fd.System, sc scope.Scope, inputs []fd.Input, outputs []string) (*mat.Dense, error) {
	opts := fd.DefaultOptions()
	opts.Form, opts.Step = fd.ComplexStep, 1e-30
	if c, ok := sys.(fd.ComplexCapable); !ok || !c.SupportsComplex() {
		opts.Form, opts.Step = fd.Central, 1e-5
	}
	eng, err := fd.New(sys, sc, inputs, outputs, opts, nil)
	if err != nil {
		return nil, err
	}
	jac, err := eng.Solve(ctx, sc, "reference")
	if err != nil {
		return nil, err
	}
	return jac.ToDense(), nil
}

// Convergence solves the Jacobian once per form and step and records the
// infinity-norm distance to ref. A nil ref is computed with Reference.
// Forms the system cannot evaluate are skipped.
func Convergence(ctx context.Context, sys fd.System, sc scope.Scope, inputs []fd.Input, outputs []string, ref *mat.Dense, forms []fd.Form, steps []float64) ([]Curve, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if ref == nil {
		var err error
		if ref, err = Reference(ctx, sys, sc, inputs, outputs); err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
	}

	curves := make([]Curve, 0, len(forms))
	for _, form := range forms {
		curve := Curve{Form: form, Best: Point{Error: math.Inf(1)}}
		for _, h := range steps {
			opts := fd.DefaultOptions()
			opts.Form, opts.Step = form, h
			eng, err := fd.New(sys, sc, inputs, outputs, opts, nil)
			if errors.Is(err, fd.ErrComplexUnsupported) {
				break
			}
			if err != nil {
				return nil, err
			}
			jac, err := eng.Solve(ctx, sc, "sweep")
			if err != nil {
				return nil, err
			}
			p := Point{Step: h, Error: distance(jac.ToDense(), ref)}
			curve.Points = append(curve.Points, p)
			if p.Error < curve.Best.Error {
				curve.Best = p
			}
		}
		if len(curve.Points) > 0 {
			curves = append(curves, curve)
		}
	}
	return curves, nil
}

func distance(a, b *mat.Dense) float64 {
	var d mat.Dense
	d.Sub(a, b)
	return mat.Norm(&d, math.Inf(1))
}

// MaxAbsDiff is the largest element-wise difference between a and b, or NaN
// when their shapes differ.
func MaxAbsDiff(a, b mat.Matrix) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return math.NaN()
	}
	worst := 0.0
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			worst = math.Max(worst, math.Abs(a.At(i, j)-b.At(i, j)))
		}
	}
	return worst
}

// Errors returns the error column of a curve, in step order.
func (c Curve) Errors() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Error
	}
	return out
}
