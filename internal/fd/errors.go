package fd

import (
	"errors"
	"fmt"
)

// Configuration errors, raised before any model evaluation.
var (
	ErrBoundsScaled       = errors.New("fd: bounds_scaled step type requires low and high bounds")
	ErrBoundsShape        = errors.New("fd: bounds must hold one value or one per element")
	ErrUnknownForm        = errors.New("fd: unknown differencing form")
	ErrUnknownStepType    = errors.New("fd: unknown step type")
	ErrUnknownFormat      = errors.New("fd: unknown return format")
	ErrStep               = errors.New("fd: step size must be positive")
	ErrEmpty              = errors.New("fd: no inputs or outputs to difference")
	ErrNotNumeric         = errors.New("fd: input is not numeric")
	ErrComplexUnsupported = errors.New("fd: complex step requested but the model is not complex-safe")
	ErrDirection          = errors.New("fd: direction does not match inputs")
)

// ConfigError ties a configuration failure to the input slot that caused it.
type ConfigError struct {
	Input string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Input == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("fd: input %q: %v", e.Input, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// EvalError wraps a failure raised while evaluating a perturbed model.
type EvalError struct {
	Input   string
	Element int
	Form    Form
	Err     error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("fd: %s difference of %s element %d: %v", e.Form, e.Input, e.Element, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
