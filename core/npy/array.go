package npy

import (
	"fmt"
	"math"

	"github.com/FocuswithJustin/npyz/core/errors"
)

// Element is the set of Go types an Array can hold.
type Element interface {
	bool | int8 | int16 | int32 | int64 | float32 | float64 | string
}

// Array is a flat slice of one Element type tagged with its kind and a
// row-major shape. The product of the shape always equals the slice length.
type Array struct {
	kind  Kind
	shape []int
	data  any
}

// NewArray wraps data with the given shape. With no shape the array is
// one-dimensional. The slice is not copied.
func NewArray[T Element](data []T, shape ...int) (*Array, error) {
	return newArray(kindOf[T](), data, len(data), shape)
}

// FromSlice is NewArray for callers holding an untyped slice.
func FromSlice(data any, shape ...int) (*Array, error) {
	switch v := data.(type) {
	case []bool:
		return NewArray(v, shape...)
	case []int8:
		return NewArray(v, shape...)
	case []int16:
		return NewArray(v, shape...)
	case []int32:
		return NewArray(v, shape...)
	case []int64:
		return NewArray(v, shape...)
	case []float32:
		return NewArray(v, shape...)
	case []float64:
		return NewArray(v, shape...)
	case []string:
		return NewArray(v, shape...)
	}
	return nil, errors.NewUnsupported("element type", fmt.Sprintf("%T", data))
}

func newArray(kind Kind, data any, n int, shape []int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{n}
	}
	count, err := elementCount(shape)
	if err != nil {
		return nil, &errors.ValidationError{Field: "shape", Message: err.Error()}
	}
	if count != n {
		return nil, errors.NewValidation("shape", fmt.Sprintf("shape %v holds %d elements, data has %d", shape, count, n))
	}
	return &Array{
		kind:  kind,
		shape: append([]int(nil), shape...),
		data:  data,
	}, nil
}

// Values returns the elements of a as []T. It fails with a StateError when
// T does not match the stored kind.
func Values[T Element](a *Array) ([]T, error) {
	values, ok := a.data.([]T)
	if !ok {
		return nil, errors.NewState("project array", fmt.Sprintf("array holds %s, not %s", a.kind, kindOf[T]()))
	}
	return values, nil
}

// Kind returns the element kind.
func (a *Array) Kind() Kind { return a.kind }

// Shape returns a copy of the shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the number of elements.
func (a *Array) Len() int {
	n, _ := elementCount(a.shape)
	return n
}

// Data returns the underlying slice as an interface value.
func (a *Array) Data() any { return a.data }

func (a *Array) String() string {
	return fmt.Sprintf("Array{kind=%s, shape=%v, data=%v}", a.kind, a.shape, a.data)
}

func kindOf[T Element]() Kind {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case string:
		return String
	}
	return Invalid
}

// elementCount multiplies the dimensions of shape, rejecting negative
// dimensions, an empty shape and overflow.
func elementCount(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("shape must have at least one dimension")
	}
	count := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("negative dimension %d in shape %v", dim, shape)
		}
		if dim != 0 && count > math.MaxInt/dim {
			return 0, fmt.Errorf("shape %v overflows", shape)
		}
		count *= dim
	}
	return count, nil
}
