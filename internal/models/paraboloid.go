package models

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/scope"
)

// Paraboloid is f(x,y) = (x-3)² + xy + (y+4)² - 3 with an analytic
// gradient. Once linearized, runs at ffdOrder 1 answer from the tangent
// plane instead of the full expression.
type Paraboloid struct {
	name string
	X, Y string
	F    string

	linearized bool
	x0, y0, f0 complex128
	j          *mat.Dense
}

func NewParaboloid(name string) *Paraboloid {
	return &Paraboloid{name: name, X: name + ".x", Y: name + ".y", F: name + ".f_xy"}
}

func (p *Paraboloid) Name() string          { return p.name }
func (p *Paraboloid) SupportsComplex() bool { return true }

func (p *Paraboloid) Declare(sc *scope.Tree, x, y float64) error {
	if err := sc.Declare(p.X, scope.Float(x), scope.Metadata{}); err != nil {
		return err
	}
	if err := sc.Declare(p.Y, scope.Float(y), scope.Metadata{}); err != nil {
		return err
	}
	return sc.Declare(p.F, scope.Float(0), scope.Metadata{})
}

func paraboloid(x, y complex128) complex128 {
	return (x-3)*(x-3) + x*y + (y+4)*(y+4) - 3
}

func (p *Paraboloid) Execute(_ context.Context, sc scope.Scope, ffdOrder int) error {
	x, err := scope.ComplexOf(sc, p.X)
	if err != nil {
		return err
	}
	y, err := scope.ComplexOf(sc, p.Y)
	if err != nil {
		return err
	}

	if ffdOrder == 1 && p.linearized {
		dfdx, dfdy := complex(p.j.At(0, 0), 0), complex(p.j.At(0, 1), 0)
		return sc.Set(p.F, scope.Complex(p.f0+dfdx*(x-p.x0)+dfdy*(y-p.y0)))
	}
	return sc.Set(p.F, scope.Complex(paraboloid(x, y)))
}

// CalcDerivatives linearizes about the current point.
func (p *Paraboloid) CalcDerivatives(_ context.Context, sc scope.Scope, _, _, _ bool) error {
	x, err := scope.ComplexOf(sc, p.X)
	if err != nil {
		return err
	}
	y, err := scope.ComplexOf(sc, p.Y)
	if err != nil {
		return err
	}
	p.x0, p.y0, p.f0 = x, y, paraboloid(x, y)
	p.j = mat.NewDense(1, 2, []float64{
		2*(real(x)-3) + real(y),
		real(x) + 2*(real(y)+4),
	})
	p.linearized = true
	return nil
}

func (p *Paraboloid) ProvideJ() (inputs, outputs []string, J *mat.Dense) {
	return []string{p.X, p.Y}, []string{p.F}, p.j
}
