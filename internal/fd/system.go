package fd

import (
	"context"

	"github.com/san-kum/fdjac/internal/scope"
)

// System evaluates the model once. ffdOrder 1 tells the model it may answer
// with a cached first-order approximation instead of a full nonlinear solve.
type System interface {
	Run(ctx context.Context, sc scope.Scope, label string, ffdOrder int) error
}

// ComplexCapable is implemented by systems whose evaluation propagates
// complex-valued inputs exactly, which the complex-step form requires.
type ComplexCapable interface {
	SupportsComplex() bool
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(ctx context.Context, sc scope.Scope, label string, ffdOrder int) error

func (f SystemFunc) Run(ctx context.Context, sc scope.Scope, label string, ffdOrder int) error {
	return f(ctx, sc, label, ffdOrder)
}

func supportsComplex(sys System) bool {
	c, ok := sys.(ComplexCapable)
	return ok && c.SupportsComplex()
}

// Input is one input slot. A slot with several names is a parameter group:
// every member is perturbed by the same amount and the slot contributes one
// set of Jacobian columns.
type Input []string

// Var is a single-variable slot.
func Var(name string) Input { return Input{name} }

// Group is a parameter-group slot.
func Group(names ...string) Input { return Input(names) }

// Key is the name the slot is reported under.
func (in Input) Key() string {
	if len(in) == 0 {
		return ""
	}
	return in[0]
}

func slots(inputs []Input) [][]string {
	out := make([][]string, len(inputs))
	for i, in := range inputs {
		out[i] = []string(in)
	}
	return out
}
