package models

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/scope"
)

// Linear is y = A·x. Its Jacobian is A exactly, under every form.
type Linear struct {
	name string
	A    *mat.Dense
	In   string
	Out  string
}

func NewLinear(name string, a *mat.Dense) *Linear {
	return &Linear{name: name, A: a, In: name + ".x", Out: name + ".y"}
}

func (l *Linear) Name() string          { return l.name }
func (l *Linear) SupportsComplex() bool { return true }

func (l *Linear) Declare(sc *scope.Tree, x []float64) error {
	r, c := l.A.Dims()
	if len(x) != c {
		return fmt.Errorf("%w: x has %d elements, A has %d columns", ErrStateDim, len(x), c)
	}
	if err := sc.Declare(l.In, scope.Array([]int{c}, x), scope.Metadata{}); err != nil {
		return err
	}
	return sc.Declare(l.Out, scope.Zeros([]int{r}), scope.Metadata{})
}

func (l *Linear) Execute(_ context.Context, sc scope.Scope, _ int) error {
	x, err := sc.Get(l.In)
	if err != nil {
		return err
	}
	r, c := l.A.Dims()
	if x.Size() != c {
		return fmt.Errorf("%w: %s has %d elements, A has %d columns", ErrStateDim, l.In, x.Size(), c)
	}
	y := make([]complex128, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			y[i] += complex(l.A.At(i, j), 0) * x.Data[j]
		}
	}
	return sc.Set(l.Out, scope.ComplexArray([]int{r}, y))
}

func (l *Linear) ProvideJ() (inputs, outputs []string, J *mat.Dense) {
	return []string{l.In}, []string{l.Out}, mat.DenseCopyOf(l.A)
}
