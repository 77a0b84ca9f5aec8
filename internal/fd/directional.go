package fd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/flat"
	"github.com/san-kum/fdjac/internal/scope"
)

// Accumulator collects directional results per output, in each output's
// native shape.
type Accumulator map[string]scope.Value

// Direction holds one entry per input slot key. A single value is broadcast
// across the slot's width; otherwise the entry needs one value per element.
type Direction map[string][]float64

// Directional computes one Jacobian-vector product per call using the
// engine-wide step and form.
type Directional struct {
	sys     System
	inputs  []Input
	outputs []string
	in      *flat.Layout
	out     *flat.Layout
	opts    Options

	yBase, y, y2 []complex128
	mv           []float64
	evals        int
}

func NewDirectional(sys System, sc scope.Scope, inputs []Input, outputs []string, opts Options) (*Directional, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Form == ComplexStep && !supportsComplex(sys) {
		return nil, &ConfigError{Err: ErrComplexUnsupported}
	}
	in, out, err := layouts(sc, inputs, outputs)
	if err != nil {
		return nil, err
	}
	return &Directional{
		sys:     sys,
		inputs:  append([]Input(nil), inputs...),
		outputs: append([]string(nil), outputs...),
		in:      in,
		out:     out,
		opts:    opts,
		yBase:   make([]complex128, out.Len()),
		y:       make([]complex128, out.Len()),
		y2:      make([]complex128, out.Len()),
		mv:      make([]float64, out.Len()),
	}, nil
}

func (d *Directional) Evaluations() int { return d.evals }

// Calculate adds J·direction into acc. Outputs whose current value is not
// numeric, or whose accumulated entry is not, are skipped.
func (d *Directional) Calculate(ctx context.Context, sc scope.Scope, direction Direction, acc Accumulator, label string) (err error) {
	label = "fd-" + label
	if err := d.checkDirection(direction); err != nil {
		return err
	}
	if err := d.out.Gather(sc, d.yBase); err != nil {
		return err
	}
	cp, err := acquire(sc, d.in, d.out, d.yBase)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := cp.release(sc); rerr != nil {
			err = errors.Join(err, fmt.Errorf("fd: restoring baseline: %w", rerr))
		}
	}()

	step := d.opts.Step
	switch d.opts.Form {
	case Forward:
		err = d.product(ctx, sc, label, direction, complex(step, 0), func(i int) float64 {
			return (real(d.y[i]) - real(d.yBase[i])) / step
		})
	case Backward:
		err = d.product(ctx, sc, label, direction, complex(-step, 0), func(i int) float64 {
			return (real(d.yBase[i]) - real(d.y[i])) / step
		})
	case Central:
		err = d.central(ctx, sc, label, direction, step)
	case ComplexStep:
		err = d.product(ctx, sc, label, direction, complex(0, step), func(i int) float64 {
			return imag(d.y[i]) / step
		})
	}
	if err != nil {
		return &EvalError{Input: "direction", Form: d.opts.Form, Err: err}
	}

	ctxlog.FromContext(ctx).Debug("directional finite difference",
		"label", label, "form", d.opts.Form.String(), "evaluations", d.opts.Form.Evaluations())
	return d.pack(sc, acc)
}

// product steps along the direction by delta, evaluates once, fills d.mv
// with diff and steps back.
func (d *Directional) product(ctx context.Context, sc scope.Scope, label string, dir Direction, delta complex128, diff func(i int) float64) error {
	if err := d.move(sc, dir, delta); err != nil {
		return err
	}
	if err := d.evaluate(ctx, sc, label, d.y); err != nil {
		return err
	}
	for i := range d.mv {
		d.mv[i] = diff(i)
	}
	return d.move(sc, dir, -delta)
}

func (d *Directional) central(ctx context.Context, sc scope.Scope, label string, dir Direction, step float64) error {
	if err := d.move(sc, dir, complex(step, 0)); err != nil {
		return err
	}
	if err := d.evaluate(ctx, sc, label, d.y); err != nil {
		return err
	}
	if err := d.move(sc, dir, complex(-2*step, 0)); err != nil {
		return err
	}
	if err := d.evaluate(ctx, sc, label, d.y2); err != nil {
		return err
	}
	for i := range d.mv {
		d.mv[i] = (real(d.y[i]) - real(d.y2[i])) / (2 * step)
	}
	return d.move(sc, dir, complex(step, 0))
}

// move adds scale·direction to every member of every slot.
func (d *Directional) move(sc scope.Scope, dir Direction, scale complex128) error {
	for _, input := range d.inputs {
		vec, ok := dir[input.Key()]
		if !ok {
			continue
		}
		for k := 0; k < d.in.Size(input.Key()); k++ {
			dk := vec[0]
			if len(vec) > 1 {
				dk = vec[k]
			}
			if dk == 0 {
				continue
			}
			for _, name := range input {
				if err := d.in.AddElement(sc, name, k, scale*complex(dk, 0)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Directional) checkDirection(dir Direction) error {
	for key, vec := range dir {
		if !slices.Contains(d.in.Keys(), key) {
			return &ConfigError{Input: key, Err: fmt.Errorf("%w: not an input slot", ErrDirection)}
		}
		if w := d.in.Size(key); len(vec) != 1 && len(vec) != w {
			return &ConfigError{Input: key, Err: fmt.Errorf("%w: %d values for width %d", ErrDirection, len(vec), w)}
		}
	}
	return nil
}

func (d *Directional) evaluate(ctx context.Context, sc scope.Scope, label string, dst []complex128) error {
	d.evals++
	if err := d.sys.Run(ctx, sc, label, 1); err != nil {
		return err
	}
	return d.out.Gather(sc, dst)
}

func (d *Directional) pack(sc scope.Scope, acc Accumulator) error {
	for _, name := range d.outputs {
		r0, r1, _ := d.out.Range(name)
		if r1 == r0 {
			continue
		}
		cur, err := sc.Get(name)
		if err != nil {
			return err
		}
		if !cur.IsNumeric() {
			continue
		}
		delta := scope.Zeros(cur.Shape)
		for i := range delta.Data {
			delta.Data[i] = complex(d.mv[r0+i], 0)
		}

		prev, ok := acc[name]
		if !ok {
			acc[name] = delta
			continue
		}
		if !prev.IsNumeric() {
			continue
		}
		sum, err := prev.Add(delta)
		if err != nil {
			return fmt.Errorf("fd: accumulating %s: %w", name, err)
		}
		acc[name] = sum
	}
	return nil
}
