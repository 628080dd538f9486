package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/tensor"
)

func mkSeq32(t *testing.T, data []float32, offsets []int, w int) *tensor.SeqTensor {
	t.Helper()
	raw, err := tensor.FromFloat32(data, tensor.Shape{len(data) / w, w})
	require.NoError(t, err)
	s, err := tensor.NewSeqTensor(raw, offsets)
	require.NoError(t, err)
	return s
}

func mkSeq64(t *testing.T, data []float64, offsets []int, w int) *tensor.SeqTensor {
	t.Helper()
	raw, err := tensor.FromFloat64(data, tensor.Shape{len(data) / w, w})
	require.NoError(t, err)
	s, err := tensor.NewSeqTensor(raw, offsets)
	require.NoError(t, err)
	return s
}

func TestSeqPoolConcatSum(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolSum, 1)
	require.NoError(t, err)

	// Input 0: sequences {[1 2],[3 4]} and {[5 6]}.
	in0 := mkSeq32(t, []float32{1, 2, 3, 4, 5, 6}, []int{0, 2, 3}, 2)
	// Input 1: sequences {[10 20]} and {[30 40],[50 60]}.
	in1 := mkSeq32(t, []float32{10, 20, 30, 40, 50, 60}, []int{0, 1, 3}, 2)

	out, err := op.Forward([]*tensor.SeqTensor{in0, in1})
	require.NoError(t, err)

	assert.True(t, out.Data.Shape().Equal(tensor.Shape{2, 4}))
	assert.Equal(t, []int{0, 1, 2}, out.Offsets)
	// Row j interleaves the pooled sequence j of every input.
	assert.Equal(t, []float32{
		4, 6, 10, 20,
		5, 6, 80, 100,
	}, out.Data.AsFloat32())
}

func TestSeqPoolConcatAverage(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolAvg, 1)
	require.NoError(t, err)

	in := mkSeq32(t, []float32{1, 2, 3, 4, 10, 20}, []int{0, 2, 3}, 2)
	out, err := op.Forward([]*tensor.SeqTensor{in})
	require.NoError(t, err)

	assert.Equal(t, []float32{2, 3, 10, 20}, out.Data.AsFloat32())
}

func TestSeqPoolConcatSqrt(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolSqrt, 1)
	require.NoError(t, err)

	// One sequence of 4 rows: sum scaled by 1/sqrt(4).
	in := mkSeq32(t, []float32{1, 1, 1, 1, 1, 1, 1, 1}, []int{0, 4}, 2)
	out, err := op.Forward([]*tensor.SeqTensor{in})
	require.NoError(t, err)

	assert.Equal(t, []float32{2, 2}, out.Data.AsFloat32())
}

func TestSeqPoolConcatEmptySequence(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolAvg, 1)
	require.NoError(t, err)

	// Sequence 1 is empty; its output slot stays zero.
	in := mkSeq32(t, []float32{1, 2, 3, 4}, []int{0, 2, 2}, 2)
	out, err := op.Forward([]*tensor.SeqTensor{in})
	require.NoError(t, err)

	assert.Equal(t, []float32{2, 3, 0, 0}, out.Data.AsFloat32())
}

func TestSeqPoolConcatFloat64(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolSum, 1)
	require.NoError(t, err)

	in0 := mkSeq64(t, []float64{1, 2, 3, 4}, []int{0, 2}, 2)
	in1 := mkSeq64(t, []float64{0.5, 0.25}, []int{0, 1}, 2)
	out, err := op.Forward([]*tensor.SeqTensor{in0, in1})
	require.NoError(t, err)

	require.Equal(t, tensor.Float64, out.Data.DType())
	assert.Equal(t, []float64{4, 6, 0.5, 0.25}, out.Data.AsFloat64())
}

func TestSeqPoolConcatManySequences(t *testing.T) {
	// Enough work to cross the parallel threshold.
	op, err := NewSeqPoolConcat(PoolSum, 1)
	require.NoError(t, err)

	const bs = 64
	data := make([]float32, 2*bs)
	offsets := make([]int, bs+1)
	for j := 0; j < bs; j++ {
		data[2*j] = float32(j)
		data[2*j+1] = float32(j)
		offsets[j+1] = 2 * (j + 1)
	}
	in := mkSeq32(t, data, offsets, 1)

	out, err := op.Forward([]*tensor.SeqTensor{in})
	require.NoError(t, err)

	got := out.Data.AsFloat32()
	require.Len(t, got, bs)
	for j := 0; j < bs; j++ {
		assert.Equal(t, 2*float32(j), got[j], "sequence %d", j)
	}
}

func TestNewSeqPoolConcatValidation(t *testing.T) {
	_, err := NewSeqPoolConcat(PoolType("MAX"), 1)
	assert.ErrorContains(t, err, "unsupported pool type")

	_, err = NewSeqPoolConcat(PoolSum, 0)
	assert.ErrorContains(t, err, "axis=1")
}

func TestSeqPoolConcatForwardValidation(t *testing.T) {
	op, err := NewSeqPoolConcat(PoolSum, 1)
	require.NoError(t, err)

	_, err = op.Forward(nil)
	assert.ErrorContains(t, err, "at least one input")

	base := mkSeq32(t, []float32{1, 2, 3, 4}, []int{0, 2}, 2)

	widened := mkSeq32(t, []float32{1, 2, 3}, []int{0, 1}, 3)
	_, err = op.Forward([]*tensor.SeqTensor{base, widened})
	assert.ErrorContains(t, err, "width of all inputs should be equal")

	rebatched := mkSeq32(t, []float32{1, 2, 3, 4}, []int{0, 1, 2}, 2)
	_, err = op.Forward([]*tensor.SeqTensor{base, rebatched})
	assert.ErrorContains(t, err, "batch size of all inputs should be equal")

	f64 := mkSeq64(t, []float64{1, 2, 3, 4}, []int{0, 2}, 2)
	_, err = op.Forward([]*tensor.SeqTensor{base, f64})
	assert.ErrorContains(t, err, "dtype")
}

func TestSeqPoolKernelScaling(t *testing.T) {
	src := []float32{1, 2, 3, 4, 5, 6}
	dst := make([]float32, 2)

	seqPoolFloat32(dst, src, 3, 2, PoolSum)
	assert.Equal(t, []float32{9, 12}, dst)

	seqPoolFloat32(dst, src, 3, 2, PoolAvg)
	assert.Equal(t, []float32{3, 4}, dst)

	seqPoolFloat32(dst, src, 3, 2, PoolSqrt)
	scale := 1 / float32(math.Sqrt(3))
	assert.InDelta(t, 9*scale, float64(dst[0]), 1e-6)
	assert.InDelta(t, 12*scale, float64(dst[1]), 1e-6)
}
