// Package nn implements the fused CPU operator kernels.
package nn

import (
	"log"

	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// SeqPoolConcat is the fused sequence-pool + concat operator.
//
// Each input is a batch of variable-length sequences over the same row
// width w. The operator pools every sequence down to one row and
// concatenates the pooled rows of all inputs along axis 1:
//
//	Input i:  [total_i, w] with offsets over bs sequences
//	Output:   [bs, n*w], row j holds input i's pooled sequence j at
//	          columns [i*w, (i+1)*w)
//
// Only concat axis 1 is supported.
type SeqPoolConcat struct {
	pool PoolType
	cfg  parallel.Config
}

// NewSeqPoolConcat creates the operator. axis must be 1.
func NewSeqPoolConcat(pool PoolType, axis int) (*SeqPoolConcat, error) {
	if !pool.valid() {
		return nil, errors.Errorf("seqpool concat: unsupported pool type %q", pool)
	}
	if axis != 1 {
		return nil, errors.Errorf("seqpool concat: only concat axis=1 is supported, got %d", axis)
	}
	return &SeqPoolConcat{pool: pool, cfg: parallel.DefaultConfig()}, nil
}

// Forward pools and concatenates the inputs. All inputs must share the
// element type, row width, and batch size. The output offset table is the
// identity 0..bs: every pooled sequence has length one.
func (op *SeqPoolConcat) Forward(ins []*tensor.SeqTensor) (*tensor.SeqTensor, error) {
	if len(ins) == 0 {
		return nil, errors.New("seqpool concat: at least one input required")
	}
	if len(ins) == 1 {
		log.Printf("seqpool concat: only one input, may waste memory")
	}

	dtype := ins[0].Data.DType()
	w := ins[0].Width()
	bs := ins[0].Batch()
	for i, in := range ins {
		if in.Data.DType() != dtype {
			return nil, errors.Errorf("seqpool concat: input %d has dtype %s, want %s",
				i, in.Data.DType(), dtype)
		}
		if in.Width() != w {
			return nil, errors.Errorf("seqpool concat: width of all inputs should be equal, input %d has %d, want %d",
				i, in.Width(), w)
		}
		if in.Batch() != bs {
			return nil, errors.Errorf("seqpool concat: batch size of all inputs should be equal, input %d has %d, want %d",
				i, in.Batch(), bs)
		}
	}

	out, err := tensor.NewRaw(tensor.Shape{bs, len(ins) * w}, dtype)
	if err != nil {
		return nil, errors.Wrap(err, "seqpool concat")
	}

	switch dtype {
	case tensor.Float32:
		op.forwardFloat32(ins, out, bs, w)
	case tensor.Float64:
		op.forwardFloat64(ins, out, bs, w)
	default:
		return nil, errors.Errorf("seqpool concat: unsupported dtype %s", dtype)
	}

	offsets := make([]int, bs+1)
	for i := range offsets {
		offsets[i] = i
	}
	return tensor.NewSeqTensor(out, offsets)
}

// forwardFloat32 runs the pooling grid. Every (input, sequence) pair writes
// a disjoint w-wide destination slot, so the grid parallelizes freely.
func (op *SeqPoolConcat) forwardFloat32(ins []*tensor.SeqTensor, out *tensor.RawTensor, bs, w int) {
	n := len(ins)
	step := n * w
	dst := out.AsFloat32()
	parallel.ForGrid(n, bs, func(i, j int) {
		in := ins[i]
		src := in.Data.AsFloat32()
		h := in.SeqLen(j)
		rows := src[in.Offsets[j]*w : in.Offsets[j+1]*w]
		slot := dst[j*step+i*w : j*step+(i+1)*w]
		seqPoolFloat32(slot, rows, h, w, op.pool)
	}, op.cfg)
}

func (op *SeqPoolConcat) forwardFloat64(ins []*tensor.SeqTensor, out *tensor.RawTensor, bs, w int) {
	n := len(ins)
	step := n * w
	dst := out.AsFloat64()
	parallel.ForGrid(n, bs, func(i, j int) {
		in := ins[i]
		src := in.Data.AsFloat64()
		h := in.SeqLen(j)
		rows := src[in.Offsets[j]*w : in.Offsets[j+1]*w]
		slot := dst[j*step+i*w : j*step+(i+1)*w]
		seqPoolFloat64(slot, rows, h, w, op.pool)
	}, op.cfg)
}
