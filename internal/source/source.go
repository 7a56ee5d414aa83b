// Package source defines the boundary to the binary-format sample parser.
//
// Parsing any specific container or record format is outside the dispatch
// layer; a Source is whatever upstream component turns storage records
// into raw sample buffers. The in-memory implementation backs tests and
// the CLI demo.
package source

import (
	"fmt"

	"github.com/batchflow-ml/batchflow/internal/batch"
)

// Source produces input batches for the dispatch layer.
type Source interface {
	// NextBatch returns the next batch of up to n samples, or an error
	// when the underlying stream is exhausted or corrupt.
	NextBatch(n int) (*batch.Batch, error)
}

// Memory is a Source over pre-parsed samples, cycling when exhausted.
type Memory struct {
	samples []*batch.Sample
	layout  batch.Layout
	next    int
}

// NewMemory wraps pre-parsed samples.
func NewMemory(samples []*batch.Sample, layout batch.Layout) (*Memory, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("memory source needs at least one sample")
	}
	return &Memory{samples: samples, layout: layout}, nil
}

// NextBatch implements Source.
func (m *Memory) NextBatch(n int) (*batch.Batch, error) {
	if n < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", n)
	}
	picked := make([]*batch.Sample, n)
	for i := 0; i < n; i++ {
		picked[i] = m.samples[m.next]
		m.next = (m.next + 1) % len(m.samples)
	}
	return batch.New(picked, m.layout)
}
