package scope

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a variable that does not exist in the scope.
	ErrNotFound = errors.New("scope: variable not found")

	// ErrIndex indicates an out-of-range or malformed array index.
	ErrIndex = errors.New("scope: invalid index")

	// ErrShape indicates data whose length disagrees with its declared shape.
	ErrShape = errors.New("scope: shape mismatch")

	// ErrNotNumeric indicates an arithmetic request on an opaque value.
	ErrNotNumeric = errors.New("scope: value is not numeric")
)

// IndexError reports which reference and index could not be resolved.
type IndexError struct {
	Ref   string
	Index []int
	Shape []int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("scope: invalid index %v into %s (shape %v)", e.Index, e.Ref, e.Shape)
}

func (e *IndexError) Unwrap() error {
	return ErrIndex
}
