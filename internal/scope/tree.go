package scope

import (
	"fmt"
	"sort"
	"sync"
)

type variable struct {
	value Value
	meta  Metadata
}

// Tree is an in-memory Scope keyed by full dotted path.
type Tree struct {
	mu   sync.RWMutex
	vars map[string]*variable
}

func NewTree() *Tree {
	return &Tree{vars: make(map[string]*variable)}
}

// Declare adds or replaces a variable together with its metadata.
func (t *Tree) Declare(name string, v Value, meta Metadata) error {
	ref, err := ParseRef(name)
	if err != nil {
		return err
	}
	if ref.Indexed() {
		return fmt.Errorf("%w: cannot declare indexed reference %s", ErrIndex, name)
	}
	if err := v.validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.vars[ref.Name] = &variable{value: v.Clone(), meta: meta}
	return nil
}

func (t *Tree) Get(name string) (Value, error) {
	ref, err := ParseRef(name)
	if err != nil {
		return Value{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.vars[ref.Name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
	}
	if !ref.Indexed() {
		return v.value.Clone(), nil
	}
	k, err := elementOffset(ref, v.value)
	if err != nil {
		return Value{}, err
	}
	return Complex(v.value.Data[k]), nil
}

func (t *Tree) Set(name string, val Value) error {
	ref, err := ParseRef(name)
	if err != nil {
		return err
	}
	if err := val.validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.vars[ref.Name]
	if !ref.Indexed() {
		if !ok {
			t.vars[ref.Name] = &variable{value: val.Clone()}
			return nil
		}
		v.value = val.Clone()
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref.Name)
	}
	if val.Kind() != KindScalar {
		return fmt.Errorf("%w: element %s needs a scalar, got %s", ErrShape, ref, val.Kind())
	}
	k, err := elementOffset(ref, v.value)
	if err != nil {
		return err
	}
	v.value.Data[k] = val.Data[0]
	return nil
}

func (t *Tree) Metadata(name string) Metadata {
	ref, err := ParseRef(name)
	if err != nil {
		return Metadata{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.vars[ref.Name]; ok {
		return v.meta
	}
	return Metadata{}
}

// SetMetadata replaces the metadata of an existing variable.
func (t *Tree) SetMetadata(name string, meta Metadata) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vars[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	v.meta = meta
	return nil
}

func (t *Tree) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.vars))
	for name := range t.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offset is the flat position in v of the element r addresses.
func (r Ref) Offset(v Value) (int, error) { return elementOffset(r, v) }

func elementOffset(ref Ref, v Value) (int, error) {
	if v.Kind() != KindArray {
		return 0, &IndexError{Ref: ref.Name, Index: ref.Index, Shape: v.Shape}
	}
	// a single index into a multi-dimensional array addresses the flattened data
	if len(ref.Index) == 1 && len(v.Shape) > 1 {
		k := ref.Index[0]
		if k < 0 || k >= len(v.Data) {
			return 0, &IndexError{Ref: ref.Name, Index: ref.Index, Shape: v.Shape}
		}
		return k, nil
	}
	k, ok := Ravel(ref.Index, v.Shape)
	if !ok {
		return 0, &IndexError{Ref: ref.Name, Index: ref.Index, Shape: v.Shape}
	}
	return k, nil
}

// RealOf reads a real scalar from sc.
func RealOf(sc Scope, name string) (float64, error) {
	v, err := sc.Get(name)
	if err != nil {
		return 0, err
	}
	if !v.IsNumeric() {
		return 0, fmt.Errorf("%s: %w", name, ErrNotNumeric)
	}
	return v.Real(), nil
}

// ComplexOf reads a scalar (with any imaginary perturbation) from sc.
func ComplexOf(sc Scope, name string) (complex128, error) {
	v, err := sc.Get(name)
	if err != nil {
		return 0, err
	}
	if !v.IsNumeric() || len(v.Data) == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrNotNumeric)
	}
	return v.Data[0], nil
}
