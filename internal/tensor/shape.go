package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3} is a 2D tensor with 2 rows and 3 columns.
type Shape []int

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that all dimensions are non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("shape: negative dimension %d at axis %d", dim, i)
		}
	}
	return nil
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, dim := range s {
		if dim != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}
