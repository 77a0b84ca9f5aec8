package scope

// Metadata carries the optional finite-difference hints attached to a
// variable. Bounds are either a single value broadcast over every element or
// one value per element; nil means unset.
type Metadata struct {
	FDStep     *float64  `yaml:"fd_step,omitempty" json:"fd_step,omitempty"`
	FDStepType string    `yaml:"fd_step_type,omitempty" json:"fd_step_type,omitempty"`
	FDForm     string    `yaml:"fd_form,omitempty" json:"fd_form,omitempty"`
	Low        []float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High       []float64 `yaml:"high,omitempty" json:"high,omitempty"`
}

// Scope reads and writes named model state.
type Scope interface {
	Get(name string) (Value, error)
	Set(name string, v Value) error
	Metadata(name string) Metadata
}
