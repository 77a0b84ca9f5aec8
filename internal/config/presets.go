package config

import (
	"sort"

	"github.com/san-kum/fdjac/internal/scope"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

var Presets = map[string]map[string]*Problem{
	"paraboloid": {
		"central": {
			Model:   "paraboloid",
			Options: OptionsConfig{FDStep: 1e-4, FDForm: "central"},
		},
		"complex": {
			Model:   "paraboloid",
			Options: OptionsConfig{FDStep: 1e-20, FDForm: "complex_step", FFDOrder: intp(0)},
		},
		"bounded": {
			Model:   "paraboloid",
			Options: OptionsConfig{FDStep: 1e-3, FDForm: "central", FFDOrder: intp(0)},
			Metadata: map[string]scope.Metadata{
				"comp.x": {Low: []float64{1}, High: []float64{10}},
				"comp.y": {Low: []float64{-10}, High: []float64{1}},
			},
		},
		"relative": {
			Model:   "paraboloid",
			Options: OptionsConfig{FDStep: 1e-7, FDStepType: "relative"},
			Values:  map[string]Floats{"comp.x": {250}, "comp.y": {-400}},
		},
	},
	"vartree": {
		"bounds_scaled": {
			Model:   "vartree",
			Options: OptionsConfig{FDStep: 1e-8, FDStepType: "bounds_scaled"},
		},
		"grouped": {
			Model:   "vartree",
			Inputs:  []Slot{{"comp.ins.x.x1", "comp.ins.x.x2"}, {"comp.ins.y"}},
			Options: OptionsConfig{FDForm: "central", FDStep: 1e-4},
		},
	},
	"linear": {
		"dict": {
			Model:   "linear",
			Options: OptionsConfig{ReturnFormat: "dict"},
		},
		"direction": {
			Model:     "linear",
			Options:   OptionsConfig{FDForm: "central", FDStep: 1e-4},
			Direction: map[string]Floats{"lin.x": {1, -1}},
		},
	},
	"pendulum": {
		"small": {
			Model:   "pendulum",
			Options: OptionsConfig{FDForm: "complex_step", FDStep: 1e-20},
			Values:  map[string]Floats{"flow.x0": {0.2, 0}},
		},
		"large": {
			Model:   "pendulum",
			Options: OptionsConfig{FDForm: "central", FDStep: 1e-5},
			Values:  map[string]Floats{"flow.x0": {2.5, 0}},
		},
		"stepped": {
			Model:   "pendulum",
			Options: OptionsConfig{FDForm: "forward"},
			Parameters: []ParameterConfig{
				{Targets: Slot{"flow.x0"}, FDStep: f64(1e-7)},
			},
		},
	},
	"lorenz": {
		"chaos": {
			Model:   "lorenz",
			Options: OptionsConfig{FDForm: "complex_step", FDStep: 1e-20},
			Params:  map[string]float64{"rho": 28},
		},
		"stable": {
			Model:   "lorenz",
			Options: OptionsConfig{FDForm: "central", FDStep: 1e-6},
			Params:  map[string]float64{"rho": 0.5},
		},
	},
	"vanderpol": {
		"stiff": {
			Model:   "vanderpol",
			Options: OptionsConfig{FDForm: "complex_step", FDStep: 1e-20},
			Params:  map[string]float64{"mu": 5},
		},
	},
	"spring_mass": {
		"bounce": {
			Model:   "spring_mass",
			Options: OptionsConfig{FDForm: "central", FDStep: 1e-5},
			Values:  map[string]Floats{"flow.x0": {2, 0, 0, 0, 0, 0}},
		},
	},
}

func GetPreset(model, preset string) *Problem {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return p
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
