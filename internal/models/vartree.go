package models

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/scope"
)

// VarTreeComp reads its inputs from a nested variable tree:
//
//	outs.z = 2·ins.x.x1 + 3·ins.x.x2 + 4·ins.y
//	z      = outs.z
type VarTreeComp struct {
	name string
}

func NewVarTreeComp(name string) *VarTreeComp { return &VarTreeComp{name: name} }

func (v *VarTreeComp) Name() string          { return v.name }
func (v *VarTreeComp) SupportsComplex() bool { return true }

func (v *VarTreeComp) path(p string) string { return v.name + "." + p }

func (v *VarTreeComp) Inputs() []string {
	return []string{v.path("ins.x.x1"), v.path("ins.x.x2"), v.path("ins.y")}
}

func (v *VarTreeComp) Outputs() []string {
	return []string{v.path("outs.z"), v.path("z")}
}

func (v *VarTreeComp) Declare(sc *scope.Tree) error {
	vals := map[string]float64{"ins.x.x1": 3, "ins.x.x2": 3, "ins.y": 5, "outs.z": 3, "z": 0}
	for p, f := range vals {
		if err := sc.Declare(v.path(p), scope.Float(f), scope.Metadata{}); err != nil {
			return err
		}
	}
	return nil
}

func (v *VarTreeComp) Execute(_ context.Context, sc scope.Scope, _ int) error {
	in := v.Inputs()
	var x [3]complex128
	for i, name := range in {
		c, err := scope.ComplexOf(sc, name)
		if err != nil {
			return err
		}
		x[i] = c
	}
	z := 2*x[0] + 3*x[1] + 4*x[2]
	if err := sc.Set(v.path("outs.z"), scope.Complex(z)); err != nil {
		return err
	}
	return sc.Set(v.path("z"), scope.Complex(z))
}

func (v *VarTreeComp) ProvideJ() (inputs, outputs []string, J *mat.Dense) {
	return v.Inputs(), v.Outputs(), mat.NewDense(2, 3, []float64{2, 3, 4, 2, 3, 4})
}
