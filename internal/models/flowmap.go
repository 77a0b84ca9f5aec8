package models

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/scope"
)

var ErrStateDim = errors.New("models: state has wrong dimension")

// FlowMap maps an initial state to the state after Duration, integrating
// Model with fixed RK4 steps. Its Jacobian is the state transition matrix.
type FlowMap struct {
	name     string
	Model    Rates
	Dt       float64
	Duration float64
	In       string
	Out      string

	rk4 *RK4
}

func NewFlowMap(name string, model Rates, dt, duration float64) *FlowMap {
	return &FlowMap{
		name:     name,
		Model:    model,
		Dt:       dt,
		Duration: duration,
		In:       name + ".x0",
		Out:      name + ".x",
		rk4:      NewRK4(),
	}
}

func (f *FlowMap) Name() string          { return f.name }
func (f *FlowMap) SupportsComplex() bool { return true }

// Declare adds the initial and final state variables with the model's
// default state.
func (f *FlowMap) Declare(sc *scope.Tree) error {
	n := f.Model.StateDim()
	if err := sc.Declare(f.In, scope.Array([]int{n}, f.Model.DefaultState()), scope.Metadata{}); err != nil {
		return err
	}
	return sc.Declare(f.Out, scope.Zeros([]int{n}), scope.Metadata{})
}

func (f *FlowMap) Execute(ctx context.Context, sc scope.Scope, _ int) error {
	x0, err := sc.Get(f.In)
	if err != nil {
		return err
	}
	n := f.Model.StateDim()
	if x0.Size() != n {
		return fmt.Errorf("%w: %s has %d elements, %s needs %d", ErrStateDim, f.In, x0.Size(), f.name, n)
	}

	x := State(x0.Data).Clone()
	steps := int(math.Round(f.Duration / f.Dt))
	t := 0.0
	for i := 0; i < steps; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		x = f.rk4.Step(f.Model, x, t, f.Dt)
		t += f.Dt
	}

	ctxlog.FromContext(ctx).Debug("flow map", "component", f.name, "steps", steps, "t", t)
	return sc.Set(f.Out, scope.ComplexArray([]int{n}, x))
}
