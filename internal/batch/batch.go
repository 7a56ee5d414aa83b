package batch

import "fmt"

// Batch is a fixed-count ordered collection of samples processed together.
// Samples within one batch may have different shapes (ragged batch) but
// share a declared rank and element type for the lifetime of the call.
type Batch struct {
	samples []*Sample
	dtype   DataType
	rank    int
	layout  Layout
}

// New builds a batch from samples, validating rank and type uniformity.
// The layout, when non-empty, must have one tag per axis.
func New(samples []*Sample, layout Layout) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("batch must contain at least one sample")
	}
	dtype := samples[0].DType()
	rank := samples[0].Shape().Rank()
	for i, s := range samples {
		if s.DType() != dtype {
			return nil, fmt.Errorf("sample %d has dtype %s, batch declares %s", i, s.DType(), dtype)
		}
		if s.Shape().Rank() != rank {
			return nil, fmt.Errorf("sample %d has rank %d, batch declares %d", i, s.Shape().Rank(), rank)
		}
	}
	if layout != "" && len(layout) != rank {
		return nil, fmt.Errorf("layout %q has %d tags for rank-%d samples", layout, len(layout), rank)
	}
	return &Batch{samples: samples, dtype: dtype, rank: rank, layout: layout}, nil
}

// Len returns the number of samples N.
func (b *Batch) Len() int {
	return len(b.samples)
}

// Sample returns sample i.
func (b *Batch) Sample(i int) *Sample {
	return b.samples[i]
}

// DType returns the batch's declared element type.
func (b *Batch) DType() DataType {
	return b.dtype
}

// Rank returns the batch's declared sample rank.
func (b *Batch) Rank() int {
	return b.rank
}

// Layout returns the batch's axis layout (possibly empty).
func (b *Batch) Layout() Layout {
	return b.layout
}

// Shapes returns the per-sample shapes in order.
func (b *Batch) Shapes() []Shape {
	shapes := make([]Shape, len(b.samples))
	for i, s := range b.samples {
		shapes[i] = s.Shape()
	}
	return shapes
}
