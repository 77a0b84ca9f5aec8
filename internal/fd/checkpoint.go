package fd

import (
	"errors"

	"github.com/san-kum/fdjac/internal/flat"
	"github.com/san-kum/fdjac/internal/scope"
)

// checkpoint holds the exact pre-call inputs and the baseline outputs of one
// call. release writes both back.
type checkpoint struct {
	in     *flat.Layout
	out    *flat.Layout
	inputs flat.Snapshot
	yBase  []complex128
}

func acquire(sc scope.Scope, in, out *flat.Layout, yBase []complex128) (*checkpoint, error) {
	snap, err := in.Snapshot(sc)
	if err != nil {
		return nil, err
	}
	return &checkpoint{in: in, out: out, inputs: snap, yBase: yBase}, nil
}

func (c *checkpoint) release(sc scope.Scope) error {
	return errors.Join(
		c.in.Restore(sc, c.inputs),
		c.out.Scatter(sc, c.yBase),
	)
}
