package scope

import "fmt"

type Kind int

const (
	KindScalar Kind = iota
	KindArray
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	default:
		return "opaque"
	}
}

// Value is a scalar, an n-dimensional array stored row-major, or an opaque
// non-numeric payload. A value with an empty Shape and one datum is a scalar.
type Value struct {
	Shape  []int
	Data   []complex128
	Opaque any
}

func Float(f float64) Value {
	return Value{Data: []complex128{complex(f, 0)}}
}

func Complex(c complex128) Value {
	return Value{Data: []complex128{c}}
}

// Vector returns a one-dimensional array.
func Vector(data ...float64) Value {
	return Array([]int{len(data)}, data)
}

// Array returns an array with the given shape. The caller is expected to
// pass len(data) == product(shape); Tree rejects values that disagree.
func Array(shape []int, data []float64) Value {
	c := make([]complex128, len(data))
	for i, v := range data {
		c[i] = complex(v, 0)
	}
	return Value{Shape: append([]int(nil), shape...), Data: c}
}

func ComplexArray(shape []int, data []complex128) Value {
	return Value{Shape: append([]int(nil), shape...), Data: append([]complex128(nil), data...)}
}

func OpaqueValue(x any) Value {
	return Value{Opaque: x}
}

// Zeros returns a zero value of the given shape (a scalar when shape is empty).
func Zeros(shape []int) Value {
	return Value{Shape: append([]int(nil), shape...), Data: make([]complex128, product(shape))}
}

func (v Value) Kind() Kind {
	switch {
	case v.Opaque != nil || v.Data == nil:
		return KindOpaque
	case len(v.Shape) == 0:
		return KindScalar
	default:
		return KindArray
	}
}

func (v Value) IsNumeric() bool {
	return v.Kind() != KindOpaque
}

// Size is the flattened element count; opaque values have size 0.
func (v Value) Size() int {
	if !v.IsNumeric() {
		return 0
	}
	return len(v.Data)
}

func (v Value) Clone() Value {
	c := Value{Opaque: v.Opaque}
	if v.Shape != nil {
		c.Shape = append([]int(nil), v.Shape...)
	}
	if v.Data != nil {
		c.Data = append([]complex128(nil), v.Data...)
	}
	return c
}

// Real returns the real part of the first element.
func (v Value) Real() float64 {
	if len(v.Data) == 0 {
		return 0
	}
	return real(v.Data[0])
}

func (v Value) Reals() []float64 {
	out := make([]float64, len(v.Data))
	for i, c := range v.Data {
		out[i] = real(c)
	}
	return out
}

// Add returns v + other element-wise. Shapes must hold the same number of
// elements; the result keeps v's shape.
func (v Value) Add(other Value) (Value, error) {
	if !v.IsNumeric() || !other.IsNumeric() {
		return Value{}, ErrNotNumeric
	}
	if len(v.Data) != len(other.Data) {
		return Value{}, fmt.Errorf("%w: %d elements vs %d", ErrShape, len(v.Data), len(other.Data))
	}
	out := v.Clone()
	for i := range out.Data {
		out.Data[i] += other.Data[i]
	}
	return out, nil
}

func (v Value) validate() error {
	if !v.IsNumeric() {
		return nil
	}
	if len(v.Shape) == 0 {
		if len(v.Data) != 1 {
			return fmt.Errorf("%w: scalar with %d elements", ErrShape, len(v.Data))
		}
		return nil
	}
	if n := product(v.Shape); n != len(v.Data) {
		return fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShape, v.Shape, n, len(v.Data))
	}
	return nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
