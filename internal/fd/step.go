package fd

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/fdjac/internal/scope"
)

// Descriptor is the resolved step policy of one input slot.
type Descriptor struct {
	Step     float64
	Form     Form
	StepType StepType
	// Low and High hold one bound for every element or a single broadcast
	// bound; nil means unbounded.
	Low  []float64
	High []float64
}

// StepAt returns the step for element k whose current value is current.
func (d Descriptor) StepAt(k int, current, threshold float64) float64 {
	step := d.Step
	switch d.StepType {
	case Relative:
		if mag := math.Abs(current); mag > threshold {
			step *= mag
		}
	case BoundsScaled:
		lo, _ := boundAt(d.Low, k)
		hi, _ := boundAt(d.High, k)
		step *= hi - lo
	}
	return step
}

// FormAt returns the form used for element k. A step that would cross low
// switches to forward; one that would cross high switches to backward.
func (d Descriptor) FormAt(k int, current, step float64) Form {
	form := d.Form
	if lo, ok := boundAt(d.Low, k); ok && current-step < lo {
		form = Forward
	}
	if hi, ok := boundAt(d.High, k); ok && current+step > hi {
		form = Backward
	}
	return form
}

func boundAt(b []float64, k int) (float64, bool) {
	switch {
	case len(b) == 0:
		return 0, false
	case len(b) == 1:
		return b[0], true
	case k < len(b):
		return b[k], true
	}
	return 0, false
}

// Override is one layer of step settings; nil fields leave earlier layers
// untouched.
type Override struct {
	Step     *float64
	StepType *StepType
	Form     *Form
	Low      []float64
	High     []float64
}

// Source supplies an Override for an input slot.
type Source interface {
	Override(in Input) (Override, error)
}

// Resolve folds sources over opts, later sources overriding earlier ones,
// and validates the result for a slot of the given width.
func Resolve(opts Options, in Input, width int, sources ...Source) (Descriptor, error) {
	d := Descriptor{Step: opts.Step, Form: opts.Form, StepType: opts.StepType}
	for _, src := range sources {
		o, err := src.Override(in)
		if err != nil {
			return Descriptor{}, &ConfigError{Input: in.Key(), Err: err}
		}
		if o.Step != nil {
			d.Step = *o.Step
		}
		if o.StepType != nil {
			d.StepType = *o.StepType
		}
		if o.Form != nil {
			d.Form = *o.Form
		}
		if o.Low != nil {
			d.Low = append([]float64(nil), o.Low...)
		}
		if o.High != nil {
			d.High = append([]float64(nil), o.High...)
		}
	}

	if !(d.Step > 0) {
		return Descriptor{}, &ConfigError{Input: in.Key(), Err: ErrStep}
	}
	for _, b := range [][]float64{d.Low, d.High} {
		if len(b) > 1 && len(b) != width {
			return Descriptor{}, &ConfigError{Input: in.Key(), Err: fmt.Errorf("%w: %d bounds for width %d", ErrBoundsShape, len(b), width)}
		}
	}
	if d.StepType == BoundsScaled {
		if err := checkScaledBounds(d); err != nil {
			return Descriptor{}, &ConfigError{Input: in.Key(), Err: err}
		}
	}
	return d, nil
}

func checkScaledBounds(d Descriptor) error {
	if d.Low == nil && d.High == nil {
		return fmt.Errorf("%w: low and high are not set", ErrBoundsScaled)
	}
	if d.Low == nil {
		return fmt.Errorf("%w: low is not set", ErrBoundsScaled)
	}
	if d.High == nil {
		return fmt.Errorf("%w: high is not set", ErrBoundsScaled)
	}
	for _, lo := range d.Low {
		if Unbounded(lo) {
			return fmt.Errorf("%w: low is not set", ErrBoundsScaled)
		}
	}
	for _, hi := range d.High {
		if Unbounded(hi) {
			return fmt.Errorf("%w: high is not set", ErrBoundsScaled)
		}
	}
	for k := 0; k < max(len(d.Low), len(d.High)); k++ {
		lo, _ := boundAt(d.Low, k)
		hi, _ := boundAt(d.High, k)
		if !(hi > lo) {
			return fmt.Errorf("%w: high %g does not exceed low %g", ErrBoundsScaled, hi, lo)
		}
	}
	return nil
}

// Unbounded reports whether b is the "no bound" sentinel: ±MaxFloat64 or ±Inf.
func Unbounded(b float64) bool {
	return math.IsInf(b, 0) || math.Abs(b) == math.MaxFloat64
}

// MetadataSource reads fd_step, fd_step_type, fd_form, low and high from the
// metadata of the slot's first member. For an indexed member only the bounds
// of the addressed element apply.
type MetadataSource struct {
	Scope scope.Scope
}

func (s MetadataSource) Override(in Input) (Override, error) {
	meta := s.Scope.Metadata(in.Key())
	low, high, err := s.elementBounds(in.Key(), meta.Low, meta.High)
	if err != nil {
		return Override{}, err
	}
	o := Override{Step: meta.FDStep, Low: low, High: high}
	if meta.FDStepType != "" {
		st, err := ParseStepType(meta.FDStepType)
		if err != nil {
			return Override{}, err
		}
		o.StepType = &st
	}
	if meta.FDForm != "" {
		f, err := ParseForm(meta.FDForm)
		if err != nil {
			return Override{}, err
		}
		o.Form = &f
	}
	return o, nil
}

func (s MetadataSource) elementBounds(key string, low, high []float64) ([]float64, []float64, error) {
	if len(low) <= 1 && len(high) <= 1 {
		return low, high, nil
	}
	ref, err := scope.ParseRef(key)
	if err != nil || !ref.Indexed() {
		return low, high, err
	}
	v, err := s.Scope.Get(ref.Name)
	if err != nil {
		return nil, nil, err
	}
	k, err := ref.Offset(v)
	if err != nil {
		return nil, nil, err
	}
	pick := func(b []float64) ([]float64, error) {
		if len(b) <= 1 {
			return b, nil
		}
		if len(b) != v.Size() {
			return nil, fmt.Errorf("%w: %d bounds for %s of %d elements", ErrBoundsShape, len(b), ref.Name, v.Size())
		}
		return []float64{b[k]}, nil
	}
	if low, err = pick(low); err != nil {
		return nil, nil, err
	}
	if high, err = pick(high); err != nil {
		return nil, nil, err
	}
	return low, high, nil
}

// Parameter is a driver design variable. One with several targets is a
// parameter group.
type Parameter struct {
	Name    string
	Targets []string
	FDStep  *float64
	Low     *float64
	High    *float64
}

// Driver exposes the design variables of an optimizer or other driver.
type Driver interface {
	Parameters() []Parameter
}

// Parameters is a static Driver.
type Parameters []Parameter

func (p Parameters) Parameters() []Parameter { return p }

// DriverSource applies the driver parameter that targets a member of the
// slot. A parameter whose only target is that member wins; otherwise the
// first group containing it supplies each field it sets.
type DriverSource struct {
	Driver Driver
}

func (s DriverSource) Override(in Input) (Override, error) {
	if s.Driver == nil {
		return Override{}, nil
	}
	params := s.Driver.Parameters()
	target, ok := firstTarget(in, params)
	if !ok {
		return Override{}, nil
	}

	for _, p := range params {
		if len(p.Targets) == 1 && p.Targets[0] == target {
			return paramOverride(p.FDStep, p.Low, p.High), nil
		}
	}

	var step, low, high *float64
	for _, p := range params {
		if len(p.Targets) < 2 || !slices.Contains(p.Targets, target) {
			continue
		}
		if step == nil {
			step = p.FDStep
		}
		if low == nil {
			low = p.Low
		}
		if high == nil {
			high = p.High
		}
	}
	return paramOverride(step, low, high), nil
}

func paramOverride(step, low, high *float64) Override {
	o := Override{Step: step}
	if low != nil {
		o.Low = []float64{*low}
	}
	if high != nil {
		o.High = []float64{*high}
	}
	return o
}

func firstTarget(in Input, params []Parameter) (string, bool) {
	for _, name := range in {
		for _, p := range params {
			if slices.Contains(p.Targets, name) {
				return name, true
			}
		}
	}
	return "", false
}
