package batch

import "fmt"

// Shape represents the extents of one sample. Extents are non-negative;
// a zero extent describes an empty sample.
type Shape []int64

// Rank returns the number of axes.
func (s Shape) Rank() int {
	return len(s)
}

// Volume returns the total number of elements.
func (s Shape) Volume() int64 {
	n := int64(1)
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every extent is non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid extent at axis %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major byte strides for the shape.
// The stride of the last axis is the element size; the stride of axis k is
// stride(k+1) * extent(k+1), a right-to-left running product.
func (s Shape) ComputeStrides(elemSize int64) []int64 {
	strides := make([]int64, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = elemSize
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
