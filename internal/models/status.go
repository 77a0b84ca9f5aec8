package models

import (
	"context"
	"math/cmplx"

	"github.com/san-kum/fdjac/internal/scope"
)

// Status publishes a non-numeric summary of a watched variable. Its output
// has no numeric width and is skipped by the engines.
type Status struct {
	name  string
	Watch string
	Out   string
	Limit float64
}

func NewStatus(name, watch string, limit float64) *Status {
	return &Status{name: name, Watch: watch, Out: name + ".status", Limit: limit}
}

func (s *Status) Name() string          { return s.name }
func (s *Status) SupportsComplex() bool { return true }

func (s *Status) Declare(sc *scope.Tree) error {
	return sc.Declare(s.Out, scope.OpaqueValue("unknown"), scope.Metadata{})
}

func (s *Status) Execute(_ context.Context, sc scope.Scope, _ int) error {
	v, err := sc.Get(s.Watch)
	if err != nil {
		return err
	}
	state := "ok"
	for _, c := range v.Data {
		if cmplx.Abs(c) > s.Limit || cmplx.IsNaN(c) {
			state = "diverged"
			break
		}
	}
	return sc.Set(s.Out, scope.OpaqueValue(state))
}
