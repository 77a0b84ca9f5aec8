package fd

const (
	DefaultStep              = 1e-6
	DefaultRelativeThreshold = 1e-4
)

// Options are the engine-wide defaults every input starts from.
type Options struct {
	Step              float64
	Form              Form
	StepType          StepType
	RelativeThreshold float64
	Format            Format
}

func DefaultOptions() Options {
	return Options{
		Step:              DefaultStep,
		Form:              Forward,
		StepType:          Absolute,
		RelativeThreshold: DefaultRelativeThreshold,
		Format:            FormatArray,
	}
}

func (o Options) validate() error {
	if !(o.Step > 0) {
		return &ConfigError{Err: ErrStep}
	}
	if o.Form < 0 || o.Form >= numForms {
		return &ConfigError{Err: ErrUnknownForm}
	}
	if o.StepType < Absolute || o.StepType > BoundsScaled {
		return &ConfigError{Err: ErrUnknownStepType}
	}
	if o.Format != FormatArray && o.Format != FormatDict {
		return &ConfigError{Err: ErrUnknownFormat}
	}
	return nil
}
