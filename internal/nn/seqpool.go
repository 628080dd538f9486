package nn

import "math"

// PoolType selects the sequence pooling reduction.
type PoolType string

// Supported pool types.
const (
	PoolSum  PoolType = "SUM"
	PoolAvg  PoolType = "AVERAGE"
	PoolSqrt PoolType = "SQRT"
)

func (p PoolType) valid() bool {
	switch p {
	case PoolSum, PoolAvg, PoolSqrt:
		return true
	default:
		return false
	}
}

// seqPoolFloat32 reduces h rows of width w from src into dst.
// dst and src must not overlap. h == 0 leaves dst zeroed.
func seqPoolFloat32(dst, src []float32, h, w int, pool PoolType) {
	for k := 0; k < w; k++ {
		dst[k] = 0
	}
	for r := 0; r < h; r++ {
		base := r * w
		for k := 0; k < w; k++ {
			dst[k] += src[base+k]
		}
	}
	if h == 0 {
		return
	}
	var scale float32
	switch pool {
	case PoolAvg:
		scale = 1 / float32(h)
	case PoolSqrt:
		scale = 1 / float32(math.Sqrt(float64(h)))
	default:
		return
	}
	for k := 0; k < w; k++ {
		dst[k] *= scale
	}
}

// seqPoolFloat64 is the float64 counterpart of seqPoolFloat32.
func seqPoolFloat64(dst, src []float64, h, w int, pool PoolType) {
	for k := 0; k < w; k++ {
		dst[k] = 0
	}
	for r := 0; r < h; r++ {
		base := r * w
		for k := 0; k < w; k++ {
			dst[k] += src[base+k]
		}
	}
	if h == 0 {
		return
	}
	var scale float64
	switch pool {
	case PoolAvg:
		scale = 1 / float64(h)
	case PoolSqrt:
		scale = 1 / math.Sqrt(float64(h))
	default:
		return
	}
	for k := 0; k < w; k++ {
		dst[k] *= scale
	}
}
