// Package batch provides the public API for the batch and sample model.
//
// A Batch is an ordered collection of same-type, same-rank samples whose
// per-sample shapes may differ. Samples expose raw storage, typed views
// and zero-copy frame slicing along a layout-tagged outermost axis.
//
// Example:
//
//	s, _ := batch.AllocSample(batch.Shape{480, 640, 3}, batch.Uint8)
//	b, _ := batch.New([]*batch.Sample{s}, "HWC")
package batch

import (
	"github.com/batchflow-ml/batchflow/internal/batch"
)

// DataType identifies the element type of a sample.
type DataType = batch.DataType

// Data type constants.
const (
	Uint8   DataType = batch.Uint8
	Int16   DataType = batch.Int16
	Int32   DataType = batch.Int32
	Int64   DataType = batch.Int64
	Float32 DataType = batch.Float32
	Float64 DataType = batch.Float64
)

// ParseDataType resolves a type name ("uint8", "float32", ...).
func ParseDataType(name string) (DataType, error) {
	return batch.ParseDataType(name)
}

// Shape holds per-axis extents. Zero extents are legal and make the
// sample empty.
type Shape = batch.Shape

// Layout is a per-axis semantic tag string, one byte per axis.
type Layout = batch.Layout

// FrameAxisTag marks the sequence axis of a frame-decomposable layout.
const FrameAxisTag = batch.FrameAxisTag

// Sample is one tensor: a shape, an element type and its storage.
type Sample = batch.Sample

// NewSample wraps host storage; the buffer must match the shape's volume.
func NewSample(data []byte, shape Shape, dtype DataType) (*Sample, error) {
	return batch.NewSample(data, shape, dtype)
}

// NewDeviceSample wraps foreign device memory identified by address only.
func NewDeviceSample(addr uint64, shape Shape, dtype DataType) (*Sample, error) {
	return batch.NewDeviceSample(addr, shape, dtype)
}

// AllocSample allocates zeroed host storage for the shape.
func AllocSample(shape Shape, dtype DataType) (*Sample, error) {
	return batch.AllocSample(shape, dtype)
}

// Batch is an ordered collection of samples with uniform type and rank.
type Batch = batch.Batch

// New builds a batch, validating type and rank uniformity and that the
// layout length matches the rank.
func New(samples []*Sample, layout Layout) (*Batch, error) {
	return batch.New(samples, layout)
}
