package tensor

import "fmt"

// SeqTensor couples a dense [total, width] tensor with a row-offset table
// describing a batch of variable-length sequences. Offsets has batch+1
// entries; sequence i occupies rows [Offsets[i], Offsets[i+1]).
type SeqTensor struct {
	Data    *RawTensor
	Offsets []int
}

// NewSeqTensor validates the offset table against the data and wraps both.
// The data must be 2D and the offsets must start at 0, be non-decreasing,
// and end at the total row count.
func NewSeqTensor(data *RawTensor, offsets []int) (*SeqTensor, error) {
	shape := data.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("seqtensor: expected 2D data [total, width], got %dD", len(shape))
	}
	if len(offsets) < 2 {
		return nil, fmt.Errorf("seqtensor: offset table needs at least 2 entries, got %d", len(offsets))
	}
	if offsets[0] != 0 {
		return nil, fmt.Errorf("seqtensor: offsets must start at 0, got %d", offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("seqtensor: offsets must be non-decreasing, got %d after %d",
				offsets[i], offsets[i-1])
		}
	}
	if last := offsets[len(offsets)-1]; last != shape[0] {
		return nil, fmt.Errorf("seqtensor: offsets end at %d but data has %d rows", last, shape[0])
	}
	return &SeqTensor{Data: data, Offsets: offsets}, nil
}

// Batch returns the number of sequences.
func (s *SeqTensor) Batch() int {
	return len(s.Offsets) - 1
}

// SeqLen returns the length (row count) of sequence i.
func (s *SeqTensor) SeqLen(i int) int {
	return s.Offsets[i+1] - s.Offsets[i]
}

// Width returns the per-row element count.
func (s *SeqTensor) Width() int {
	return s.Data.Shape()[1]
}
