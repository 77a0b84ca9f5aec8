// Package flat maps named model variables onto contiguous ranges of a flat
// numeric buffer and moves values between that buffer and a scope.
package flat

import (
	"errors"
	"fmt"

	"github.com/san-kum/fdjac/internal/scope"
)

// ErrGroupWidth indicates parameter-group members with different widths.
var ErrGroupWidth = errors.New("flat: parameter group members differ in width")

type span struct {
	start, end int
}

// Layout assigns every slot a half-open range [start, end). A slot is one
// variable reference or a group of references sharing one range. Ranges
// partition [0, Len()) in slot order.
type Layout struct {
	slots  [][]string
	ranges map[string]span
	size   int
}

// Width is the flattened element count of ref: 1 for scalars and indexed
// references, the product of the shape for arrays, 0 for opaque values.
func Width(sc scope.Scope, ref string) (int, error) {
	v, err := sc.Get(ref)
	if err != nil {
		return 0, err
	}
	return v.Size(), nil
}

// New builds a layout for slots; each inner slice is one slot.
func New(sc scope.Scope, slots [][]string) (*Layout, error) {
	l := &Layout{ranges: make(map[string]span)}
	for _, slot := range slots {
		if len(slot) == 0 {
			return nil, fmt.Errorf("flat: empty slot")
		}
		width, err := Width(sc, slot[0])
		if err != nil {
			return nil, err
		}
		for _, member := range slot[1:] {
			w, err := Width(sc, member)
			if err != nil {
				return nil, err
			}
			if w != width {
				return nil, fmt.Errorf("%w: %s has %d, %s has %d", ErrGroupWidth, slot[0], width, member, w)
			}
		}
		sp := span{start: l.size, end: l.size + width}
		for _, member := range slot {
			if _, dup := l.ranges[member]; dup {
				return nil, fmt.Errorf("flat: %s appears in more than one slot", member)
			}
			l.ranges[member] = sp
		}
		l.slots = append(l.slots, append([]string(nil), slot...))
		l.size += width
	}
	return l, nil
}

// NewSingles builds a layout in which every name is its own slot.
func NewSingles(sc scope.Scope, names []string) (*Layout, error) {
	slots := make([][]string, len(names))
	for i, n := range names {
		slots[i] = []string{n}
	}
	return New(sc, slots)
}

// Len is the total buffer width.
func (l *Layout) Len() int { return l.size }

func (l *Layout) Contains(name string) bool {
	_, ok := l.ranges[name]
	return ok
}

// Range returns the buffer range of name.
func (l *Layout) Range(name string) (start, end int, ok bool) {
	sp, ok := l.ranges[name]
	return sp.start, sp.end, ok
}

// Size is the flattened width of name, or 0 when it is not laid out.
func (l *Layout) Size(name string) int {
	sp := l.ranges[name]
	return sp.end - sp.start
}

// Keys returns the first member of every slot, in order.
func (l *Layout) Keys() []string {
	keys := make([]string, len(l.slots))
	for i, s := range l.slots {
		keys[i] = s[0]
	}
	return keys
}

// Names returns every laid-out reference, group members included.
func (l *Layout) Names() []string {
	var names []string
	for _, s := range l.slots {
		names = append(names, s...)
	}
	return names
}

// Gather copies the current value of every slot key into dst.
func (l *Layout) Gather(sc scope.Scope, dst []complex128) error {
	if len(dst) < l.size {
		return fmt.Errorf("%w: buffer of %d for layout of %d", scope.ErrShape, len(dst), l.size)
	}
	for _, s := range l.slots {
		sp := l.ranges[s[0]]
		if sp.end == sp.start {
			continue
		}
		v, err := sc.Get(s[0])
		if err != nil {
			return err
		}
		if v.Size() != sp.end-sp.start {
			return fmt.Errorf("%w: %s changed width from %d to %d", scope.ErrShape, s[0], sp.end-sp.start, v.Size())
		}
		copy(dst[sp.start:sp.end], v.Data)
	}
	return nil
}

// Scatter writes src back into the scope for every laid-out reference.
func (l *Layout) Scatter(sc scope.Scope, src []complex128) error {
	for _, name := range l.Names() {
		sp := l.ranges[name]
		if sp.end == sp.start {
			continue
		}
		v, err := sc.Get(name)
		if err != nil {
			return err
		}
		copy(v.Data, src[sp.start:sp.end])
		if err := sc.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Element returns element k (relative to the reference) of name.
func (l *Layout) Element(sc scope.Scope, name string, k int) (complex128, error) {
	v, err := l.element(sc, name, k)
	if err != nil {
		return 0, err
	}
	return v.Data[k], nil
}

// AddElement adds delta to element k of name.
func (l *Layout) AddElement(sc scope.Scope, name string, k int, delta complex128) error {
	v, err := l.element(sc, name, k)
	if err != nil {
		return err
	}
	v.Data[k] += delta
	return sc.Set(name, v)
}

func (l *Layout) element(sc scope.Scope, name string, k int) (scope.Value, error) {
	if !l.Contains(name) {
		return scope.Value{}, fmt.Errorf("%w: %s is not laid out", scope.ErrNotFound, name)
	}
	v, err := sc.Get(name)
	if err != nil {
		return scope.Value{}, err
	}
	if k < 0 || k >= v.Size() {
		return scope.Value{}, &scope.IndexError{Ref: name, Index: scope.Unravel(k, v.Shape), Shape: v.Shape}
	}
	return v, nil
}

// Snapshot is an exact copy of every laid-out reference.
type Snapshot map[string]scope.Value

func (l *Layout) Snapshot(sc scope.Scope) (Snapshot, error) {
	snap := make(Snapshot, len(l.ranges))
	for _, name := range l.Names() {
		v, err := sc.Get(name)
		if err != nil {
			return nil, err
		}
		snap[name] = v
	}
	return snap, nil
}

// Restore writes every snapshotted value back and reports all failures.
func (l *Layout) Restore(sc scope.Scope, snap Snapshot) error {
	var errs []error
	for _, name := range l.Names() {
		v, ok := snap[name]
		if !ok {
			continue
		}
		if err := sc.Set(name, v); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
