package fd

import (
	"fmt"
	"strings"
)

// Form is the differencing formula applied to one input element.
type Form int

const (
	Forward Form = iota
	Backward
	Central
	ComplexStep
	numForms
)

var formNames = [numForms]string{"forward", "backward", "central", "complex_step"}

func (f Form) String() string {
	if f < 0 || f >= numForms {
		return fmt.Sprintf("Form(%d)", int(f))
	}
	return formNames[f]
}

// Evaluations is the number of model runs one application of f costs.
func (f Form) Evaluations() int {
	if f == Central {
		return 2
	}
	return 1
}

func ParseForm(s string) (Form, error) {
	switch normalize(s) {
	case "forward":
		return Forward, nil
	case "backward":
		return Backward, nil
	case "central":
		return Central, nil
	case "complex_step", "complex":
		return ComplexStep, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownForm, s)
}

func (f Form) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Form) UnmarshalText(b []byte) error {
	v, err := ParseForm(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// StepType selects how the base step is scaled for an element.
type StepType int

const (
	Absolute StepType = iota
	Relative
	BoundsScaled
)

func (t StepType) String() string {
	switch t {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case BoundsScaled:
		return "bounds_scaled"
	}
	return fmt.Sprintf("StepType(%d)", int(t))
}

func ParseStepType(s string) (StepType, error) {
	switch normalize(s) {
	case "absolute":
		return Absolute, nil
	case "relative":
		return Relative, nil
	case "bounds_scaled":
		return BoundsScaled, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStepType, s)
}

func (t StepType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *StepType) UnmarshalText(b []byte) error {
	v, err := ParseStepType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Format selects how Solve packs its result.
type Format int

const (
	// FormatArray packs one dense out_size x in_size matrix.
	FormatArray Format = iota
	// FormatDict packs one block per (output, input) pair.
	FormatDict
)

func (f Format) String() string {
	if f == FormatDict {
		return "dict"
	}
	return "array"
}

func ParseFormat(s string) (Format, error) {
	switch normalize(s) {
	case "array", "dense":
		return FormatArray, nil
	case "dict", "blocks":
		return FormatDict, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
