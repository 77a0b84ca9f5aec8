package fd

import (
	"context"
	"math"
	"math/cmplx"

	"github.com/san-kum/fdjac/internal/scope"
)

// complexSys is a SystemFunc that declares itself complex-safe.
type complexSys struct{ SystemFunc }

func (complexSys) SupportsComplex() bool { return true }

// counting wraps a system and records how many times it ran.
type counting struct {
	System
	runs   int
	labels []string
	orders []int
}

func (c *counting) Run(ctx context.Context, sc scope.Scope, label string, order int) error {
	c.runs++
	c.labels = append(c.labels, label)
	c.orders = append(c.orders, order)
	return c.System.Run(ctx, sc, label, order)
}

func (c *counting) SupportsComplex() bool { return supportsComplex(c.System) }

// fataler is satisfied by *testing.T and GinkgoT().
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func mustDeclare(t fataler, sc *scope.Tree, name string, v scope.Value, meta scope.Metadata) {
	t.Helper()
	if err := sc.Declare(name, v, meta); err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
}

func mustRun(t fataler, sys System, sc scope.Scope) {
	t.Helper()
	if err := sys.Run(context.Background(), sc, "base", 0); err != nil {
		t.Fatalf("baseline run: %v", err)
	}
}

// paraboloid is y = x0^2 - 5x0 + x1^2 - 5x1 with gradient (2x0-5, 2x1-5).
func paraboloid(t fataler, x0, x1 float64) (*scope.Tree, System) {
	t.Helper()
	sc := scope.NewTree()
	mustDeclare(t, sc, "x", scope.Vector(x0, x1), scope.Metadata{})
	mustDeclare(t, sc, "y", scope.Float(0), scope.Metadata{})
	sys := complexSys{func(_ context.Context, sc scope.Scope, _ string, _ int) error {
		x, err := sc.Get("x")
		if err != nil {
			return err
		}
		a, b := x.Data[0], x.Data[1]
		return sc.Set("y", scope.Complex(a*a-5*a+b*b-5*b))
	}}
	mustRun(t, sys, sc)
	return sc, sys
}

var linearA = [][]float64{{1, 2}, {3, 4}, {5, 6}}

// linear is y = A·x for a 3x2 A.
func linear(t fataler) (*scope.Tree, System) {
	t.Helper()
	sc := scope.NewTree()
	mustDeclare(t, sc, "x", scope.Vector(0.5, -1.5), scope.Metadata{})
	mustDeclare(t, sc, "y", scope.Vector(0, 0, 0), scope.Metadata{})
	sys := complexSys{func(_ context.Context, sc scope.Scope, _ string, _ int) error {
		x, err := sc.Get("x")
		if err != nil {
			return err
		}
		y := make([]complex128, len(linearA))
		for i, row := range linearA {
			for j, a := range row {
				y[i] += complex(a, 0) * x.Data[j]
			}
		}
		return sc.Set("y", scope.ComplexArray([]int{3}, y))
	}}
	mustRun(t, sys, sc)
	return sc, sys
}

// exponential is y = exp(x), a model with nonzero second derivative.
func exponential(t fataler, x float64) (*scope.Tree, System) {
	t.Helper()
	sc := scope.NewTree()
	mustDeclare(t, sc, "x", scope.Float(x), scope.Metadata{})
	mustDeclare(t, sc, "y", scope.Float(0), scope.Metadata{})
	sys := complexSys{func(_ context.Context, sc scope.Scope, _ string, _ int) error {
		v, err := scope.ComplexOf(sc, "x")
		if err != nil {
			return err
		}
		return sc.Set("y", scope.Complex(cmplx.Exp(v)))
	}}
	mustRun(t, sys, sc)
	return sc, sys
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

func ptr(f float64) *float64 { return &f }
