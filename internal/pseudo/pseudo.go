// Package pseudo groups components that cannot provide their own derivatives
// into one block whose Jacobian is obtained by finite differences.
package pseudo

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/scope"
)

// Component is one model stage run inside a pseudo-assembly.
type Component interface {
	Name() string
	Execute(ctx context.Context, sc scope.Scope, ffdOrder int) error
}

// IterNamer receives the iteration coordinate before each run.
type IterNamer interface {
	SetIterName(name string)
}

// Linearizer is a component that can linearize itself about the current
// point, so that later runs with ffdOrder 1 may use the linear model.
type Linearizer interface {
	CalcDerivatives(ctx context.Context, sc scope.Scope, first, second, saveBase bool) error
}

// Differentiable is anything that reports a Jacobian over named inputs and
// outputs. Pseudo-assemblies and analytic components both satisfy it.
type Differentiable interface {
	ProvideJ() (inputs, outputs []string, J *mat.Dense)
}

// PseudoAssembly is not a real model node: it exists only to finite
// difference a block of components as a unit.
type PseudoAssembly struct {
	name     string
	itername string
	comps    []Component
	inputs   []fd.Input
	outputs  []string
	sc       scope.Scope
	engine   *fd.Engine
	jac      *fd.Jacobian
	j        *mat.Dense

	// FFDOrder 0 forces a full nonlinear run of every component even when
	// the engine asks for order 1.
	FFDOrder int
}

func New(name string, comps []Component, inputs []fd.Input, outputs []string, sc scope.Scope, opts fd.Options, driver fd.Driver) (*PseudoAssembly, error) {
	if !strings.Contains(name, "~") {
		name = "~" + name
	}
	p := &PseudoAssembly{
		name:     name,
		comps:    append([]Component(nil), comps...),
		inputs:   append([]fd.Input(nil), inputs...),
		outputs:  append([]string(nil), outputs...),
		sc:       sc,
		FFDOrder: 1,
	}
	engine, err := fd.New(p, sc, inputs, outputs, opts, driver)
	if err != nil {
		return nil, fmt.Errorf("pseudo-assembly %s: %w", name, err)
	}
	p.engine = engine
	return p, nil
}

func (p *PseudoAssembly) Name() string { return p.name }

func (p *PseudoAssembly) SetIterName(name string) { p.itername = name }

func (p *PseudoAssembly) Engine() *fd.Engine { return p.engine }

// Run executes every component in order. It is the system the finite
// difference engine evaluates.
func (p *PseudoAssembly) Run(ctx context.Context, sc scope.Scope, caseID string, ffdOrder int) error {
	if p.FFDOrder == 0 {
		ffdOrder = 0
	}
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("block", p.name, "case", caseID))
	for _, c := range p.comps {
		if n, ok := c.(IterNamer); ok {
			n.SetIterName(p.itername + "-fd")
		}
		if err := c.Execute(ctx, sc, ffdOrder); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// SupportsComplex reports whether every contained component propagates
// complex inputs.
func (p *PseudoAssembly) SupportsComplex() bool {
	for _, c := range p.comps {
		cc, ok := c.(fd.ComplexCapable)
		if !ok || !cc.SupportsComplex() {
			return false
		}
	}
	return true
}

// CalcDerivatives finite differences the block. When first is set, any
// contained component able to linearize does so before the perturbations.
func (p *PseudoAssembly) CalcDerivatives(ctx context.Context, first, second, saveBase bool) error {
	if first {
		for _, c := range p.comps {
			l, ok := c.(Linearizer)
			if !ok {
				continue
			}
			if err := l.CalcDerivatives(ctx, p.sc, first, second, saveBase); err != nil {
				return fmt.Errorf("%s: linearize: %w", c.Name(), err)
			}
		}
	}

	jac, err := p.engine.Solve(ctx, p.sc, p.itername)
	if err != nil {
		return fmt.Errorf("pseudo-assembly %s: %w", p.name, err)
	}
	p.jac, p.j = jac, jac.ToDense()
	return nil
}

// Jacobian is the labelled result of the last CalcDerivatives, or nil.
func (p *PseudoAssembly) Jacobian() *fd.Jacobian { return p.jac }

// ProvideJ returns the input slot keys, the outputs and the last Jacobian,
// which is nil until CalcDerivatives has succeeded.
func (p *PseudoAssembly) ProvideJ() (inputs, outputs []string, J *mat.Dense) {
	inputs = make([]string, len(p.inputs))
	for i, in := range p.inputs {
		inputs[i] = in.Key()
	}
	return inputs, append([]string(nil), p.outputs...), p.j
}

// Get reads a variable through the block's scope.
func (p *PseudoAssembly) Get(name string) (scope.Value, error) {
	return p.sc.Get(name)
}
