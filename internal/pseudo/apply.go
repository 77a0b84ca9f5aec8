package pseudo

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/flat"
	"github.com/san-kum/fdjac/internal/scope"
)

var (
	ErrNoJacobian = errors.New("pseudo: no Jacobian available")
	ErrArgWidth   = errors.New("pseudo: argument width does not match variable")
)

// ApplyJ adds J·arg into result. arg is keyed by input name, result by output
// name; missing arg entries count as zero.
func ApplyJ(sc scope.Scope, d Differentiable, arg, result map[string][]float64) error {
	in, out, J, err := layoutsFor(sc, d)
	if err != nil {
		return err
	}
	return apply(J, in, out, arg, result)
}

// ApplyJT adds Jᵀ·arg into result. arg is keyed by output name, result by
// input name.
func ApplyJT(sc scope.Scope, d Differentiable, arg, result map[string][]float64) error {
	in, out, J, err := layoutsFor(sc, d)
	if err != nil {
		return err
	}
	return apply(J.T(), out, in, arg, result)
}

func layoutsFor(sc scope.Scope, d Differentiable) (in, out *flat.Layout, J *mat.Dense, err error) {
	inputs, outputs, J := d.ProvideJ()
	if J == nil {
		return nil, nil, nil, ErrNoJacobian
	}
	if in, err = flat.NewSingles(sc, inputs); err != nil {
		return nil, nil, nil, err
	}
	if out, err = flat.NewSingles(sc, outputs); err != nil {
		return nil, nil, nil, err
	}
	if r, c := J.Dims(); r != out.Len() || c != in.Len() {
		return nil, nil, nil, fmt.Errorf("%w: J is %dx%d, variables are %dx%d", scope.ErrShape, r, c, out.Len(), in.Len())
	}
	return in, out, J, nil
}

// apply computes m·x with x gathered from arg over src and scatters the
// product into result over dst.
func apply(m mat.Matrix, src, dst *flat.Layout, arg, result map[string][]float64) error {
	if src.Len() == 0 || dst.Len() == 0 {
		return nil
	}
	x := mat.NewVecDense(src.Len(), nil)
	for _, name := range src.Keys() {
		v, ok := arg[name]
		if !ok {
			continue
		}
		s, e, _ := src.Range(name)
		if len(v) != e-s {
			return fmt.Errorf("%w: %s has %d values, needs %d", ErrArgWidth, name, len(v), e-s)
		}
		for i, f := range v {
			x.SetVec(s+i, f)
		}
	}

	var y mat.VecDense
	y.MulVec(m, x)

	for _, name := range dst.Keys() {
		s, e, _ := dst.Range(name)
		if e == s {
			continue
		}
		acc, ok := result[name]
		if !ok {
			acc = make([]float64, e-s)
		} else if len(acc) != e-s {
			return fmt.Errorf("%w: result %s has %d values, needs %d", ErrArgWidth, name, len(acc), e-s)
		}
		for i := range acc {
			acc[i] += y.AtVec(s + i)
		}
		result[name] = acc
	}
	return nil
}
