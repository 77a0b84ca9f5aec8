package models

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/pseudo"
	"github.com/san-kum/fdjac/internal/scope"
)

// Problem is a ready-to-differentiate model: a populated scope, the
// components that compute the outputs and the input and output selection.
type Problem struct {
	Name        string
	Description string
	Scope       *scope.Tree
	Components  []pseudo.Component
	Inputs      []fd.Input
	Outputs     []string
	Parameters  fd.Parameters

	// Analytic, when set, returns the exact Jacobian at the current point
	// in the layout of Inputs and Outputs.
	Analytic func(ctx context.Context) (*mat.Dense, error)
}

// Assemble wraps the components in a pseudo-assembly ready to be finite
// differenced.
func (p *Problem) Assemble(opts fd.Options) (*pseudo.PseudoAssembly, error) {
	return pseudo.New(p.Name, p.Components, p.Inputs, p.Outputs, p.Scope, opts, p.Parameters)
}

// Baseline runs every component once with a full nonlinear evaluation.
func (p *Problem) Baseline(ctx context.Context) error {
	for _, c := range p.Components {
		if err := c.Execute(ctx, p.Scope, 0); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

// InputKeys are the names the input slots are reported under.
func (p *Problem) InputKeys() []string {
	keys := make([]string, len(p.Inputs))
	for i, in := range p.Inputs {
		keys[i] = in.Key()
	}
	return keys
}

// Builder creates a fresh problem; params override model constants.
type Builder func(params map[string]float64) (*Problem, error)

type entry struct {
	build       Builder
	description string
}

type Registry struct {
	problems map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{problems: make(map[string]entry)}

	r.Register("paraboloid", "f(x,y) = (x-3)^2 + xy + (y+4)^2 - 3 at (1,1)", buildParaboloid)
	r.Register("linear", "y = A·x with a fixed 3x2 matrix", buildLinear)
	r.Register("vartree", "component reading a nested variable tree", buildVarTree)
	r.Register("tied", "two linear maps sharing one grouped input", buildTied)

	r.Register("pendulum", "damped pendulum flow map over 1s", flowBuilder(func() Rates { return NewPendulum() }, 0.01, 1.0))
	r.Register("lorenz", "Lorenz system flow map over 0.5s", flowBuilder(func() Rates { return NewLorenz() }, 0.005, 0.5))
	r.Register("vanderpol", "Van der Pol flow map over 2s", flowBuilder(func() Rates { return NewVanDerPol() }, 0.01, 2.0))
	r.Register("duffing", "forced Duffing oscillator flow map over 2s", flowBuilder(func() Rates { return NewDuffing() }, 0.01, 2.0))
	r.Register("spring_mass", "three-mass spring chain flow map over 1s", flowBuilder(func() Rates { return NewSpringMassChain(3) }, 0.01, 1.0))

	return r
}

func (r *Registry) Register(name, description string, b Builder) {
	r.problems[name] = entry{build: b, description: description}
}

func (r *Registry) Get(name string, params map[string]float64) (*Problem, error) {
	e, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	p, err := e.build(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.Name = name
	p.Description = e.description
	return p, nil
}

func (r *Registry) Describe(name string) string { return r.problems[name].description }

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildParaboloid(_ map[string]float64) (*Problem, error) {
	sc := scope.NewTree()
	comp := NewParaboloid("comp")
	if err := comp.Declare(sc, 1, 1); err != nil {
		return nil, err
	}
	return &Problem{
		Scope:      sc,
		Components: []pseudo.Component{comp},
		Inputs:     []fd.Input{fd.Var(comp.X), fd.Var(comp.Y)},
		Outputs:    []string{comp.F},
		Analytic: func(ctx context.Context) (*mat.Dense, error) {
			if err := comp.CalcDerivatives(ctx, sc, true, false, false); err != nil {
				return nil, err
			}
			_, _, j := comp.ProvideJ()
			return mat.DenseCopyOf(j), nil
		},
	}, nil
}

var linearMatrix = []float64{1, 2, 3, 4, 5, 6}

func buildLinear(_ map[string]float64) (*Problem, error) {
	sc := scope.NewTree()
	comp := NewLinear("lin", mat.NewDense(3, 2, linearMatrix))
	if err := comp.Declare(sc, []float64{0.5, -1.5}); err != nil {
		return nil, err
	}
	return &Problem{
		Scope:      sc,
		Components: []pseudo.Component{comp},
		Inputs:     []fd.Input{fd.Var(comp.In)},
		Outputs:    []string{comp.Out},
		Analytic:   analyticOf(comp),
	}, nil
}

func buildVarTree(_ map[string]float64) (*Problem, error) {
	sc := scope.NewTree()
	comp := NewVarTreeComp("comp")
	if err := comp.Declare(sc); err != nil {
		return nil, err
	}
	low, high := -1000.0, 1000.0
	var params fd.Parameters
	inputs := make([]fd.Input, 0, 3)
	for _, name := range comp.Inputs() {
		inputs = append(inputs, fd.Var(name))
		params = append(params, fd.Parameter{Name: name, Targets: []string{name}, Low: &low, High: &high})
	}
	return &Problem{
		Scope:      sc,
		Components: []pseudo.Component{comp},
		Inputs:     inputs,
		Outputs:    comp.Outputs(),
		Parameters: params,
		Analytic:   analyticOf(comp),
	}, nil
}

// buildTied feeds one design variable into two maps: perturbing the group
// moves a.x and b.x together, so its columns stack A over B.
func buildTied(_ map[string]float64) (*Problem, error) {
	sc := scope.NewTree()
	a := NewLinear("a", mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	b := NewLinear("b", mat.NewDense(2, 2, []float64{-1, 0, 0, 2}))
	for _, c := range []*Linear{a, b} {
		if err := c.Declare(sc, []float64{1, 1}); err != nil {
			return nil, err
		}
	}
	return &Problem{
		Scope:      sc,
		Components: []pseudo.Component{a, b},
		Inputs:     []fd.Input{fd.Group(a.In, b.In)},
		Outputs:    []string{a.Out, b.Out},
		Parameters: fd.Parameters{{Name: "shared", Targets: []string{a.In, b.In}}},
		Analytic: func(context.Context) (*mat.Dense, error) {
			j := mat.NewDense(4, 2, nil)
			j.Slice(0, 2, 0, 2).(*mat.Dense).Copy(a.A)
			j.Slice(2, 4, 0, 2).(*mat.Dense).Copy(b.A)
			return j, nil
		},
	}, nil
}

func flowBuilder(newModel func() Rates, dt, duration float64) Builder {
	return func(params map[string]float64) (*Problem, error) {
		model := newModel()
		for k, v := range params {
			if _, ok := model.GetParams()[k]; !ok {
				return nil, fmt.Errorf("unknown parameter: %s", k)
			}
			model.SetParam(k, v)
		}
		sc := scope.NewTree()
		flow := NewFlowMap("flow", model, dt, duration)
		if err := flow.Declare(sc); err != nil {
			return nil, err
		}
		status := NewStatus("watch", flow.Out, 1e6)
		if err := status.Declare(sc); err != nil {
			return nil, err
		}
		return &Problem{
			Scope:      sc,
			Components: []pseudo.Component{flow, status},
			Inputs:     []fd.Input{fd.Var(flow.In)},
			Outputs:    []string{flow.Out, status.Out},
		}, nil
	}
}

func analyticOf(d pseudo.Differentiable) func(context.Context) (*mat.Dense, error) {
	return func(context.Context) (*mat.Dense, error) {
		_, _, j := d.ProvideJ()
		return mat.DenseCopyOf(j), nil
	}
}
