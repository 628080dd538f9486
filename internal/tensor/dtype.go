package tensor

// DataType represents the underlying element type of a tensor.
type DataType int

// Supported data types. The fused CPU kernels operate on float32 and
// float64, matching what the operator registers.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the element size in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("tensor: unknown data type")
	}
}

// String returns a human-readable type name.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}
