// Package op defines the operator execution contract: the two-phase
// Setup/Run protocol every operator implements, the workspace of input and
// output batches it runs against, and output allocation.
package op

import (
	"fmt"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/device"
	"github.com/batchflow-ml/batchflow/internal/pool"
)

// OutputDesc describes one output slot after Setup: a shape per sample, a
// single element type and the axis layout the output batch carries. The
// enclosing executor allocates output batches from these descriptors
// before Run.
type OutputDesc struct {
	Shapes []batch.Shape
	Type   batch.DataType
	Layout batch.Layout
}

// Workspace carries the batches and injected collaborators for one
// pipeline-batch invocation. The pool and stream are shared infrastructure
// owned by the enclosing pipeline.
type Workspace struct {
	Inputs  []*batch.Batch
	Outputs []*batch.Batch
	Pool    *pool.Pool
	Stream  device.Stream
}

// NumInput returns the number of input batches.
func (ws *Workspace) NumInput() int {
	return len(ws.Inputs)
}

// Input returns input batch i.
func (ws *Workspace) Input(i int) *batch.Batch {
	return ws.Inputs[i]
}

// Output returns output batch i.
func (ws *Workspace) Output(i int) *batch.Batch {
	return ws.Outputs[i]
}

// Operator is the execution contract shared by every operator.
//
// Setup performs shape and type inference from the inputs' shapes and
// types without touching sample data, and must validate the inputs against
// the operator's static declaration. Run performs the computation into
// outputs already allocated to the shapes Setup returned, writing exactly
// the declared output memory.
//
// Setup must precede Run for every batch. Calling Run without a prior
// successful Setup is a programming-contract violation and panics.
type Operator interface {
	Setup(ws *Workspace) ([]OutputDesc, error)
	Run(ws *Workspace) error
}

// Lifecycle enforces the Unconfigured -> ShapesKnown -> Unconfigured state
// machine. Operators embed it and call its hooks from Setup and Run.
type Lifecycle struct {
	shapesKnown bool
}

// SetupDone records a successful Setup.
func (l *Lifecycle) SetupDone() {
	l.shapesKnown = true
}

// BeginRun consumes the ShapesKnown state for the current batch. It panics
// if Setup did not run first: this is a fatal contract violation, not a
// recoverable error.
func (l *Lifecycle) BeginRun() {
	if !l.shapesKnown {
		panic("op: Run called without a prior successful Setup")
	}
	l.shapesKnown = false
}

// Allocator supplies raw output memory once Setup descriptors are known.
// It is an external collaborator; the default allocates host memory.
type Allocator interface {
	Allocate(shape batch.Shape, dtype batch.DataType) (*batch.Sample, error)
}

// HostAllocator allocates zeroed host buffers.
type HostAllocator struct{}

// Allocate implements Allocator.
func (HostAllocator) Allocate(shape batch.Shape, dtype batch.DataType) (*batch.Sample, error) {
	return batch.AllocSample(shape, dtype)
}

// AllocateOutputs materializes output batches for the given descriptors.
func AllocateOutputs(descs []OutputDesc, alloc Allocator) ([]*batch.Batch, error) {
	outs := make([]*batch.Batch, len(descs))
	for i, desc := range descs {
		samples := make([]*batch.Sample, len(desc.Shapes))
		for j, shape := range desc.Shapes {
			s, err := alloc.Allocate(shape, desc.Type)
			if err != nil {
				return nil, fmt.Errorf("allocating output %d sample %d: %w", i, j, err)
			}
			samples[j] = s
		}
		b, err := batch.New(samples, desc.Layout)
		if err != nil {
			return nil, fmt.Errorf("assembling output batch %d: %w", i, err)
		}
		outs[i] = b
	}
	return outs, nil
}

// Execute drives one batch through an operator: Setup, output allocation,
// Run. The workspace's Outputs field is populated from the Setup
// descriptors.
func Execute(o Operator, ws *Workspace, alloc Allocator) error {
	descs, err := o.Setup(ws)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	ws.Outputs, err = AllocateOutputs(descs, alloc)
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	if err := o.Run(ws); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
