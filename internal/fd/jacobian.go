package fd

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fdjac/internal/ctxlog"
	"github.com/san-kum/fdjac/internal/flat"
	"github.com/san-kum/fdjac/internal/scope"
)

// Jacobian is the result of one Solve. Exactly one of Dense and Blocks is
// set, depending on Format.
type Jacobian struct {
	Format Format
	// Dense is out_size x in_size.
	Dense *mat.Dense
	// Blocks is keyed by output, then input slot key; each block is
	// output width x input width.
	Blocks  map[string]map[string]*mat.Dense
	Inputs  []string
	Outputs []string

	in, out *flat.Layout
}

// Block returns the sub-matrix d(out)/d(in) in either format.
func (j *Jacobian) Block(out, in string) (mat.Matrix, bool) {
	if j.Format == FormatDict {
		b, ok := j.Blocks[out][in]
		return b, ok
	}
	r0, r1, ok := j.out.Range(out)
	if !ok || r1 == r0 {
		return nil, false
	}
	c0, c1, ok := j.in.Range(in)
	if !ok {
		return nil, false
	}
	return j.Dense.Slice(r0, r1, c0, c1), true
}

// ToDense assembles the full out_size x in_size matrix in either format.
func (j *Jacobian) ToDense() *mat.Dense {
	if j.Format == FormatArray {
		return mat.DenseCopyOf(j.Dense)
	}
	d := mat.NewDense(j.out.Len(), j.in.Len(), nil)
	for _, o := range j.Outputs {
		r0, r1, _ := j.out.Range(o)
		if r1 == r0 {
			continue
		}
		for _, i := range j.Inputs {
			c0, c1, _ := j.in.Range(i)
			d.Slice(r0, r1, c0, c1).(*mat.Dense).Copy(j.Blocks[o][i])
		}
	}
	return d
}

// RowLabels names every row of the dense form, one per output element.
func (j *Jacobian) RowLabels() []string { return elementLabels(j.out, j.Outputs) }

// ColLabels names every column of the dense form, one per input element.
func (j *Jacobian) ColLabels() []string { return elementLabels(j.in, j.Inputs) }

func elementLabels(l *flat.Layout, names []string) []string {
	labels := make([]string, 0, l.Len())
	for _, n := range names {
		s, e, _ := l.Range(n)
		if e-s == 1 {
			labels = append(labels, n)
			continue
		}
		for k := 0; k < e-s; k++ {
			labels = append(labels, fmt.Sprintf("%s[%d]", n, k))
		}
	}
	return labels
}

// Engine computes full Jacobians by perturbing one input element at a time.
type Engine struct {
	sys     System
	inputs  []Input
	outputs []string
	in      *flat.Layout
	out     *flat.Layout
	steps   []Descriptor
	opts    Options

	yBase, y, y2 []complex128
	jfd          []float64
	evals        int
}

// New lays out inputs and outputs against sc and resolves every slot's step
// policy from opts, variable metadata and driver parameters (driver may be
// nil). All configuration errors surface here, before any evaluation.
func New(sys System, sc scope.Scope, inputs []Input, outputs []string, opts Options, driver Driver) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	in, out, err := layouts(sc, inputs, outputs)
	if err != nil {
		return nil, err
	}

	sources := []Source{MetadataSource{Scope: sc}}
	if driver != nil {
		sources = append(sources, DriverSource{Driver: driver})
	}

	e := &Engine{
		sys:     sys,
		inputs:  append([]Input(nil), inputs...),
		outputs: append([]string(nil), outputs...),
		in:      in,
		out:     out,
		steps:   make([]Descriptor, len(inputs)),
		opts:    opts,
		yBase:   make([]complex128, out.Len()),
		y:       make([]complex128, out.Len()),
		y2:      make([]complex128, out.Len()),
		jfd:     make([]float64, out.Len()),
	}
	for j, input := range inputs {
		d, err := Resolve(opts, input, in.Size(input.Key()), sources...)
		if err != nil {
			return nil, err
		}
		if d.Form == ComplexStep && !supportsComplex(sys) {
			return nil, &ConfigError{Input: input.Key(), Err: ErrComplexUnsupported}
		}
		e.steps[j] = d
	}
	return e, nil
}

func layouts(sc scope.Scope, inputs []Input, outputs []string) (*flat.Layout, *flat.Layout, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, nil, &ConfigError{Err: ErrEmpty}
	}
	in, err := flat.New(sc, slots(inputs))
	if err != nil {
		var ie *scope.IndexError
		if errors.As(err, &ie) {
			return nil, nil, err
		}
		return nil, nil, &ConfigError{Err: err}
	}
	for _, input := range inputs {
		if in.Size(input.Key()) == 0 {
			return nil, nil, &ConfigError{Input: input.Key(), Err: ErrNotNumeric}
		}
	}
	out, err := flat.NewSingles(sc, outputs)
	if err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	if out.Len() == 0 {
		return nil, nil, &ConfigError{Err: ErrEmpty}
	}
	return in, out, nil
}

// Descriptors returns the resolved step policy of every input slot.
func (e *Engine) Descriptors() []Descriptor {
	return append([]Descriptor(nil), e.steps...)
}

// Evaluations is the number of model runs performed so far.
func (e *Engine) Evaluations() int { return e.evals }

func (e *Engine) InSize() int  { return e.in.Len() }
func (e *Engine) OutSize() int { return e.out.Len() }

// Solve returns the Jacobian of the outputs with respect to the inputs at the
// current state of sc. The inputs and the baseline outputs are written back
// before Solve returns, whether or not an evaluation failed.
func (e *Engine) Solve(ctx context.Context, sc scope.Scope, label string) (jac *Jacobian, err error) {
	label = "fd-" + label
	log := ctxlog.FromContext(ctx)

	if err := e.out.Gather(sc, e.yBase); err != nil {
		return nil, err
	}
	cp, err := acquire(sc, e.in, e.out, e.yBase)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := cp.release(sc); rerr != nil {
			err = errors.Join(err, fmt.Errorf("fd: restoring baseline: %w", rerr))
		}
	}()

	jac = e.newJacobian()
	start := e.evals
	for j, input := range e.inputs {
		key := input.Key()
		desc := e.steps[j]
		for k := 0; k < e.in.Size(key); k++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cur, err := e.in.Element(sc, key, k)
			if err != nil {
				return nil, err
			}
			step := desc.StepAt(k, real(cur), e.opts.RelativeThreshold)
			form := desc.FormAt(k, real(cur), step)
			if form == ComplexStep && !supportsComplex(e.sys) {
				return nil, &ConfigError{Input: key, Err: ErrComplexUnsupported}
			}
			if err := differencers[form](e, ctx, sc, label, input, k, step); err != nil {
				return nil, &EvalError{Input: key, Element: k, Form: form, Err: err}
			}
			jac.setColumn(key, k, e.jfd)
		}
	}

	log.Debug("finite difference solve",
		"label", label,
		"inputs", e.in.Len(),
		"outputs", e.out.Len(),
		"evaluations", e.evals-start,
		"format", e.opts.Format.String())
	return jac, nil
}

func (e *Engine) newJacobian() *Jacobian {
	j := &Jacobian{
		Format:  e.opts.Format,
		Inputs:  e.in.Keys(),
		Outputs: append([]string(nil), e.outputs...),
		in:      e.in,
		out:     e.out,
	}
	if j.Format == FormatArray {
		j.Dense = mat.NewDense(e.out.Len(), e.in.Len(), nil)
		return j
	}
	j.Blocks = make(map[string]map[string]*mat.Dense, len(e.outputs))
	for _, o := range e.outputs {
		rows := e.out.Size(o)
		if rows == 0 {
			continue
		}
		j.Blocks[o] = make(map[string]*mat.Dense, len(e.inputs))
		for _, input := range e.inputs {
			j.Blocks[o][input.Key()] = mat.NewDense(rows, e.in.Size(input.Key()), nil)
		}
	}
	return j
}

func (j *Jacobian) setColumn(in string, k int, col []float64) {
	if j.Format == FormatArray {
		c0, _, _ := j.in.Range(in)
		j.Dense.SetCol(c0+k, col)
		return
	}
	for _, o := range j.Outputs {
		r0, r1, _ := j.out.Range(o)
		if r1 == r0 {
			continue
		}
		j.Blocks[o][in].SetCol(k, col[r0:r1])
	}
}

// differencer perturbs element k of one slot, evaluates, fills e.jfd and
// undoes the perturbation.
type differencer func(e *Engine, ctx context.Context, sc scope.Scope, label string, in Input, k int, step float64) error

var differencers = [numForms]differencer{
	Forward:     (*Engine).forward,
	Backward:    (*Engine).backward,
	Central:     (*Engine).central,
	ComplexStep: (*Engine).complexStep,
}

func (e *Engine) forward(ctx context.Context, sc scope.Scope, label string, in Input, k int, step float64) error {
	if err := e.perturb(sc, in, k, complex(step, 0)); err != nil {
		return err
	}
	if err := e.evaluate(ctx, sc, label, e.y); err != nil {
		return err
	}
	for i := range e.jfd {
		e.jfd[i] = (real(e.y[i]) - real(e.yBase[i])) / step
	}
	return e.perturb(sc, in, k, complex(-step, 0))
}

func (e *Engine) backward(ctx context.Context, sc scope.Scope, label string, in Input, k int, step float64) error {
	if err := e.perturb(sc, in, k, complex(-step, 0)); err != nil {
		return err
	}
	if err := e.evaluate(ctx, sc, label, e.y); err != nil {
		return err
	}
	for i := range e.jfd {
		e.jfd[i] = (real(e.yBase[i]) - real(e.y[i])) / step
	}
	return e.perturb(sc, in, k, complex(step, 0))
}

func (e *Engine) central(ctx context.Context, sc scope.Scope, label string, in Input, k int, step float64) error {
	if err := e.perturb(sc, in, k, complex(step, 0)); err != nil {
		return err
	}
	if err := e.evaluate(ctx, sc, label, e.y); err != nil {
		return err
	}
	if err := e.perturb(sc, in, k, complex(-2*step, 0)); err != nil {
		return err
	}
	if err := e.evaluate(ctx, sc, label, e.y2); err != nil {
		return err
	}
	for i := range e.jfd {
		e.jfd[i] = (real(e.y[i]) - real(e.y2[i])) / (2 * step)
	}
	return e.perturb(sc, in, k, complex(step, 0))
}

func (e *Engine) complexStep(ctx context.Context, sc scope.Scope, label string, in Input, k int, step float64) error {
	if err := e.perturb(sc, in, k, complex(0, step)); err != nil {
		return err
	}
	if err := e.evaluate(ctx, sc, label, e.y); err != nil {
		return err
	}
	for i := range e.jfd {
		e.jfd[i] = imag(e.y[i]) / step
	}
	return e.perturb(sc, in, k, complex(0, -step))
}

// perturb adds delta to element k of every member of the slot.
func (e *Engine) perturb(sc scope.Scope, in Input, k int, delta complex128) error {
	for _, name := range in {
		if err := e.in.AddElement(sc, name, k, delta); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) evaluate(ctx context.Context, sc scope.Scope, label string, dst []complex128) error {
	e.evals++
	if err := e.sys.Run(ctx, sc, label, 1); err != nil {
		return err
	}
	return e.out.Gather(sc, dst)
}
