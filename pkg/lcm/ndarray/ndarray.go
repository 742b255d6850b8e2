// Package ndarray provides a dense n-dimensional array with row-major layout.
package ndarray

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrInvalidShape = errors.New("shape dimensions must be greater than 0")

// Array is a dense n-dimensional array. The backing slice is laid out
// row-major: the last axis varies fastest.
//
// An Array with an empty shape is zero-dimensional and holds exactly one
// element.
type Array[T any] struct {
	shape   []int
	strides []int
	data    []T
}

// New creates an array with the given shape, filled with the zero value of T.
func New[T any](shape ...int) (*Array[T], error) {
	total := 1
	for _, dim := range shape {
		if dim < 1 {
			return nil, errors.Wrapf(ErrInvalidShape, "shape %v", shape)
		}
		total *= dim
	}

	strides := make([]int, len(shape))
	stride := 1
	for axis := len(shape) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= shape[axis]
	}

	return &Array[T]{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    make([]T, total),
	}, nil
}

// Shape returns a copy of the array shape.
func (a *Array[T]) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Len returns the total number of elements.
func (a *Array[T]) Len() int {
	return len(a.data)
}

// Data returns the backing slice. Mutations are visible to the array.
func (a *Array[T]) Data() []T {
	return a.data
}

// Index converts multi-dimensional coordinates to a flat index.
func (a *Array[T]) Index(coords ...int) int {
	if len(coords) != len(a.shape) {
		panic(fmt.Sprintf("ndarray: got %d coordinates for %d axes", len(coords), len(a.shape)))
	}
	idx := 0
	for axis, c := range coords {
		if c < 0 || c >= a.shape[axis] {
			panic(fmt.Sprintf("ndarray: coordinate %d out of range [0, %d) on axis %d", c, a.shape[axis], axis))
		}
		idx += c * a.strides[axis]
	}

	return idx
}

// Coords converts a flat index back to multi-dimensional coordinates.
func (a *Array[T]) Coords(idx int) []int {
	if idx < 0 || idx >= len(a.data) {
		panic(fmt.Sprintf("ndarray: flat index %d out of range [0, %d)", idx, len(a.data)))
	}
	coords := make([]int, len(a.shape))
	for axis, stride := range a.strides {
		coords[axis] = idx / stride
		idx %= stride
	}

	return coords
}

// At returns the element at the given coordinates.
func (a *Array[T]) At(coords ...int) T {
	return a.data[a.Index(coords...)]
}

// Set stores the element at the given coordinates.
func (a *Array[T]) Set(value T, coords ...int) {
	a.data[a.Index(coords...)] = value
}
