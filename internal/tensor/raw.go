// Package tensor provides the dense tensor storage used by the CPU
// operator kernels: shapes, element types, raw backing data, and the
// sequence batch layout for variable-length inputs.
package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is an untyped dense tensor: contiguous row-major storage plus
// shape and element-type metadata. Kernels view the data through the
// As* accessors.
type RawTensor struct {
	shape Shape
	dtype DataType
	data  []byte
}

// NewRaw allocates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &RawTensor{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, shape.NumElements()*dtype.Size()),
	}, nil
}

// FromFloat32 builds a float32 tensor from a slice, copying the data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor: %d elements do not fit shape %v", len(data), shape)
	}
	r, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	copy(r.AsFloat32(), data)
	return r, nil
}

// FromFloat64 builds a float64 tensor from a slice, copying the data.
func FromFloat64(data []float64, shape Shape) (*RawTensor, error) {
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor: %d elements do not fit shape %v", len(data), shape)
	}
	r, err := NewRaw(shape, Float64)
	if err != nil {
		return nil, err
	}
	copy(r.AsFloat64(), data)
	return r, nil
}

// Shape returns the tensor shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the element type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total element count.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// AsFloat32 views the data as []float32. Panics on dtype mismatch.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor: AsFloat32 on %s tensor", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 views the data as []float64. Panics on dtype mismatch.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor: AsFloat64 on %s tensor", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}
