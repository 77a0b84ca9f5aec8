package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fdjac/internal/fd"
	"github.com/san-kum/fdjac/internal/models"
)

func TestDefaultProblem(t *testing.T) {
	p := DefaultProblem()

	if p.Model != "paraboloid" {
		t.Errorf("expected model paraboloid, got %s", p.Model)
	}
	opts, err := p.ToOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts != fd.DefaultOptions() {
		t.Errorf("expected default options, got %+v", opts)
	}
	if p.FFDOrder() != 1 {
		t.Errorf("expected ffd order 1, got %d", p.FFDOrder())
	}
}

const problemYAML = `
model: vartree
label: it7
options:
  fd_step: 1.0e-4
  fd_form: central
  fd_step_type: relative
  return_format: dict
  ffd_order: 0
inputs:
  - [comp.ins.x.x1, comp.ins.x.x2]
  - comp.ins.y
outputs: [comp.z]
values:
  comp.ins.y: 2
metadata:
  comp.ins.y:
    fd_step: 1.0e-3
    low: [-5]
    high: [5]
parameters:
  - name: tied
    targets: [comp.ins.x.x1, comp.ins.x.x2]
    low: -10
direction:
  comp.ins.x.x1: 1
  comp.ins.y: [0.5]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.yaml")
	if err := os.WriteFile(path, []byte(problemYAML), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Inputs) != 2 || len(p.Inputs[0]) != 2 || p.Inputs[1][0] != "comp.ins.y" {
		t.Errorf("expected one group and one single input, got %v", p.Inputs)
	}
	opts, err := p.ToOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Form != fd.Central || opts.StepType != fd.Relative || opts.Format != fd.FormatDict || opts.Step != 1e-4 {
		t.Errorf("unexpected options %+v", opts)
	}
	if p.FFDOrder() != 0 {
		t.Errorf("expected ffd order 0, got %d", p.FFDOrder())
	}
	if d := p.DirectionVector(); d["comp.ins.x.x1"][0] != 1 || d["comp.ins.y"][0] != 0.5 {
		t.Errorf("unexpected direction %v", d)
	}
	drv := p.Driver()
	if len(drv) != 1 || len(drv[0].Targets) != 2 || *drv[0].Low != -10 || drv[0].High != nil {
		t.Errorf("unexpected driver %+v", drv)
	}
}

func TestApply(t *testing.T) {
	var p Problem
	if err := yamlUnmarshal(problemYAML, &p); err != nil {
		t.Fatal(err)
	}
	m, err := models.NewRegistry().Get("vartree", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(m); err != nil {
		t.Fatal(err)
	}

	if len(m.Inputs) != 2 || m.Inputs[0].Key() != "comp.ins.x.x1" {
		t.Errorf("inputs not applied: %v", m.Inputs)
	}
	if len(m.Outputs) != 1 {
		t.Errorf("outputs not applied: %v", m.Outputs)
	}
	y, _ := m.Scope.Get("comp.ins.y")
	if y.Real() != 2 {
		t.Errorf("expected comp.ins.y 2, got %v", y.Real())
	}
	if meta := m.Scope.Metadata("comp.ins.y"); meta.FDStep == nil || *meta.FDStep != 1e-3 || meta.High[0] != 5 {
		t.Errorf("metadata not applied: %+v", meta)
	}
	if len(m.Parameters) != 4 {
		t.Errorf("expected 3 model parameters plus 1 configured, got %d", len(m.Parameters))
	}
}

func TestApplyErrors(t *testing.T) {
	m, _ := models.NewRegistry().Get("linear", nil)
	p := &Problem{Values: map[string]Floats{"lin.x": {1}}}
	if err := p.Apply(m); err == nil {
		t.Error("expected width mismatch error")
	}
	p = &Problem{Values: map[string]Floats{"nope": {1}}}
	if err := p.Apply(m); err == nil {
		t.Error("expected unknown variable error")
	}
}

func TestToOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts OptionsConfig
		err  error
	}{
		{"form", OptionsConfig{FDForm: "sideways"}, fd.ErrUnknownForm},
		{"step type", OptionsConfig{FDStepType: "huge"}, fd.ErrUnknownStepType},
		{"format", OptionsConfig{ReturnFormat: "xml"}, fd.ErrUnknownFormat},
		{"step", OptionsConfig{FDStep: -1}, fd.ErrStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Problem{Options: tt.opts}
			if _, err := p.ToOptions(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	want := GetPreset("vartree", "grouped")
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Inputs) != 2 || len(got.Inputs[0]) != 2 || got.Options.FDForm != "central" {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestGetPreset(t *testing.T) {
	p := GetPreset("pendulum", "small")
	if p == nil {
		t.Fatal("expected preset, got nil")
	}
	if p.Values["flow.x0"][0] != 0.2 {
		t.Errorf("expected theta 0.2, got %v", p.Values["flow.x0"])
	}
	if GetPreset("pendulum", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "small") != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsApply(t *testing.T) {
	reg := models.NewRegistry()
	for model := range Presets {
		for _, name := range ListPresets(model) {
			t.Run(model+"/"+name, func(t *testing.T) {
				p := GetPreset(model, name)
				if _, err := p.ToOptions(); err != nil {
					t.Fatal(err)
				}
				m, err := reg.Get(p.Model, p.Params)
				if err != nil {
					t.Fatal(err)
				}
				if err := p.Apply(m); err != nil {
					t.Fatal(err)
				}
			})
		}
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func yamlUnmarshal(s string, v any) error {
	return yaml.Unmarshal([]byte(s), v)
}
