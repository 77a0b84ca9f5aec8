package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/models"
	"github.com/san-kum/fdjac/internal/scope"
)

const (
	DefaultModel    = "paraboloid"
	DefaultForm     = "forward"
	DefaultStepType = "absolute"
	DefaultFormat   = "array"
	DefaultFFDOrder = 1
)

// Problem describes one differentiation run: which model, how to step and
// which variables to differentiate. Empty fields keep the model's defaults.
type Problem struct {
	Model      string                    `yaml:"model"`
	Label      string                    `yaml:"label,omitempty"`
	Options    OptionsConfig             `yaml:"options"`
	Params     map[string]float64        `yaml:"params,omitempty"`
	Inputs     []Slot                    `yaml:"inputs,omitempty"`
	Outputs    []string                  `yaml:"outputs,omitempty"`
	Values     map[string]Floats         `yaml:"values,omitempty"`
	Metadata   map[string]scope.Metadata `yaml:"metadata,omitempty"`
	Parameters []ParameterConfig         `yaml:"parameters,omitempty"`
	Direction  map[string]Floats         `yaml:"direction,omitempty"`
}

type OptionsConfig struct {
	FDStep            float64 `yaml:"fd_step,omitempty"`
	FDForm            string  `yaml:"fd_form,omitempty"`
	FDStepType        string  `yaml:"fd_step_type,omitempty"`
	RelativeThreshold float64 `yaml:"relative_threshold,omitempty"`
	ReturnFormat      string  `yaml:"return_format,omitempty"`
	FFDOrder          *int    `yaml:"ffd_order,omitempty"`
}

// ParameterConfig is a driver design variable; several targets make a
// parameter group.
type ParameterConfig struct {
	Name    string   `yaml:"name,omitempty"`
	Targets Slot     `yaml:"targets"`
	FDStep  *float64 `yaml:"fd_step,omitempty"`
	Low     *float64 `yaml:"low,omitempty"`
	High    *float64 `yaml:"high,omitempty"`
}

func DefaultProblem() *Problem {
	return &Problem{
		Model: DefaultModel,
		Options: OptionsConfig{
			FDStep:            fd.DefaultStep,
			FDForm:            DefaultForm,
			FDStepType:        DefaultStepType,
			RelativeThreshold: fd.DefaultRelativeThreshold,
			ReturnFormat:      DefaultFormat,
		},
	}
}

func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultProblem()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func Save(path string, p *Problem) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToOptions converts the options block to engine options.
func (p *Problem) ToOptions() (fd.Options, error) {
	opts := fd.DefaultOptions()
	o := p.Options
	if o.FDStep < 0 {
		return opts, fmt.Errorf("fd_step %g: %w", o.FDStep, fd.ErrStep)
	}
	if o.FDStep > 0 {
		opts.Step = o.FDStep
	}
	if o.RelativeThreshold > 0 {
		opts.RelativeThreshold = o.RelativeThreshold
	}
	var err error
	if o.FDForm != "" {
		if opts.Form, err = fd.ParseForm(o.FDForm); err != nil {
			return opts, err
		}
	}
	if o.FDStepType != "" {
		if opts.StepType, err = fd.ParseStepType(o.FDStepType); err != nil {
			return opts, err
		}
	}
	if o.ReturnFormat != "" {
		if opts.Format, err = fd.ParseFormat(o.ReturnFormat); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func (p *Problem) FFDOrder() int {
	if p.Options.FFDOrder == nil {
		return DefaultFFDOrder
	}
	return *p.Options.FFDOrder
}

// Driver returns the configured design variables.
func (p *Problem) Driver() fd.Parameters {
	params := make(fd.Parameters, 0, len(p.Parameters))
	for _, pc := range p.Parameters {
		name := pc.Name
		if name == "" && len(pc.Targets) > 0 {
			name = pc.Targets[0]
		}
		params = append(params, fd.Parameter{
			Name:    name,
			Targets: append([]string(nil), pc.Targets...),
			FDStep:  pc.FDStep,
			Low:     pc.Low,
			High:    pc.High,
		})
	}
	return params
}

// DirectionVector converts the direction block for the directional engine.
func (p *Problem) DirectionVector() fd.Direction {
	dir := make(fd.Direction, len(p.Direction))
	for k, v := range p.Direction {
		dir[k] = append([]float64(nil), v...)
	}
	return dir
}

// Apply overlays the problem on a freshly built model: input and output
// selection, initial values, variable metadata and driver parameters.
func (p *Problem) Apply(m *models.Problem) error {
	if len(p.Inputs) > 0 {
		m.Inputs = make([]fd.Input, len(p.Inputs))
		for i, s := range p.Inputs {
			m.Inputs[i] = fd.Input(s)
		}
	}
	if len(p.Outputs) > 0 {
		m.Outputs = append([]string(nil), p.Outputs...)
	}

	for name, vals := range p.Values {
		cur, err := m.Scope.Get(name)
		if err != nil {
			return err
		}
		if !cur.IsNumeric() {
			return fmt.Errorf("values.%s: %w", name, scope.ErrNotNumeric)
		}
		if len(vals) != cur.Size() {
			return fmt.Errorf("values.%s: %w: %d values for %d elements", name, scope.ErrShape, len(vals), cur.Size())
		}
		next := cur.Clone()
		for i, v := range vals {
			next.Data[i] = complex(v, 0)
		}
		if err := m.Scope.Set(name, next); err != nil {
			return err
		}
	}

	for name, meta := range p.Metadata {
		if err := m.Scope.SetMetadata(name, meta); err != nil {
			return fmt.Errorf("metadata.%s: %w", name, err)
		}
	}
	m.Parameters = append(m.Parameters, p.Driver()...)
	return nil
}

// Slot is one input slot. In YAML it is either a single reference or a list
// of references forming a parameter group.
type Slot []string

func (s *Slot) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Slot{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("line %d: empty input group", node.Line)
		}
		*s = names
		return nil
	}
	return fmt.Errorf("line %d: input must be a name or a list of names", node.Line)
}

func (s Slot) MarshalYAML() (any, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	return []string(s), nil
}

// Floats accepts a single number or a list of numbers.
type Floats []float64

func (f *Floats) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*f = Floats{v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return err
		}
		*f = vs
		return nil
	}
	return fmt.Errorf("line %d: expected a number or a list of numbers", node.Line)
}

func (f Floats) MarshalYAML() (any, error) {
	if len(f) == 1 {
		return f[0], nil
	}
	return []float64(f), nil
}
