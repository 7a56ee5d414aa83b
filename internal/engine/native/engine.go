package native

import (
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/device"
	"github.com/batchflow-ml/batchflow/internal/metrics"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// Operator dispatches an externally compiled kernel, one launch per
// sample. It owns mutable scratch (size blocks, pointer tables, the
// marshaled argument list) reused, never concurrently, across calls;
// concurrent batches must use distinct instances.
type Operator struct {
	op.Lifecycle

	cfg     Config
	backend device.Backend
	log     *zap.Logger

	// Scratch, reset at the start of each Setup. Indexing is slot*N+i.
	inSizes  [][]int64
	outSizes [][]int64
	inHdrs   [][2]uint64
	outHdrs  [][2]uint64
	inPtrs   []uint64
	outPtrs  []uint64
	args     []unsafe.Pointer

	// Inferred output shapes, [slot][sample]; the shape-inference callback
	// writes extents into these buffers in place.
	outShapes [][]batch.Shape

	// Shape-pointer tables handed to the shape-inference callback.
	inShapePtrs  []uint64
	outShapePtrs []uint64
}

// New validates the configuration and binds the operator to a driver
// backend. Configuration errors are fatal for the instance.
func New(cfg Config, backend device.Backend, log *zap.Logger) (*Operator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil device backend", op.ErrInvalidConfig)
	}
	return &Operator{cfg: cfg, backend: backend, log: log}, nil
}

// Setup validates the runtime inputs against the declaration and computes
// per-sample size/stride metadata and output descriptors. No sample data
// is touched.
func (o *Operator) Setup(ws *op.Workspace) ([]op.OutputDesc, error) {
	nIns := ws.NumInput()
	nOuts := len(o.cfg.OutTypes)
	if nIns != len(o.cfg.InTypes) {
		return nil, fmt.Errorf("%w: expected %d inputs (basing on in_types), but got %d",
			op.ErrInputContractViolation, len(o.cfg.InTypes), nIns)
	}

	n := ws.Input(0).Len()
	for inID := 0; inID < nIns; inID++ {
		in := ws.Input(inID)
		if in.Len() != n {
			return nil, fmt.Errorf("%w: input %d has %d samples, input 0 has %d",
				op.ErrInputContractViolation, inID, in.Len(), n)
		}
		if in.Rank() != o.cfg.InsNDim[inID] {
			return nil, fmt.Errorf("%w: ins_ndim at index %d doesn't match the input data: %d != %d",
				op.ErrInputContractViolation, inID, in.Rank(), o.cfg.InsNDim[inID])
		}
		if in.DType() != o.cfg.InTypes[inID] {
			return nil, fmt.Errorf("%w: in_types at index %d doesn't match the input data: %s != %s",
				op.ErrInputContractViolation, inID, in.DType(), o.cfg.InTypes[inID])
		}
	}

	o.reset(nIns, nOuts, n)
	for inID := 0; inID < nIns; inID++ {
		in := ws.Input(inID)
		for i := 0; i < n; i++ {
			o.inSizes = append(o.inSizes, calcSizes(in.DType(), in.Sample(i).Shape()))
		}
	}

	if o.cfg.SetupFn == 0 {
		descs, err := o.mirrorOutputs(ws, n)
		if err != nil {
			return nil, err
		}
		o.SetupDone()
		return descs, nil
	}

	descs, err := o.inferOutputs(ws, n)
	if err != nil {
		return nil, err
	}
	o.SetupDone()
	return descs, nil
}

// mirrorOutputs handles the no-shape-inference case: output slots mirror
// the inputs 1:1, shape and type verbatim.
func (o *Operator) mirrorOutputs(ws *op.Workspace, n int) ([]op.OutputDesc, error) {
	if len(o.cfg.OutTypes) != len(o.cfg.InTypes) {
		return nil, fmt.Errorf("%w: size of out_types (%d) should match size of in_types (%d) when no setup_fn is provided",
			op.ErrSchemaMismatch, len(o.cfg.OutTypes), len(o.cfg.InTypes))
	}
	descs := make([]op.OutputDesc, len(o.cfg.OutTypes))
	for outID := range o.cfg.OutTypes {
		in := ws.Input(outID)
		for i := 0; i < n; i++ {
			o.outSizes = append(o.outSizes, calcSizes(in.DType(), in.Sample(i).Shape()))
		}
		descs[outID] = op.OutputDesc{Shapes: in.Shapes(), Type: in.DType(), Layout: in.Layout()}
	}
	return descs, nil
}

// inferOutputs invokes the shape-inference entry point: the callee writes
// extents in place into pre-allocated per-sample shape buffers, which are
// then validated non-negative.
func (o *Operator) inferOutputs(ws *op.Workspace, n int) ([]op.OutputDesc, error) {
	nIns := len(o.cfg.InTypes)
	nOuts := len(o.cfg.OutTypes)

	for inID := 0; inID < nIns; inID++ {
		in := ws.Input(inID)
		for i := 0; i < n; i++ {
			o.inShapePtrs[inID*n+i] = shapeAddr(in.Sample(i).Shape())
		}
	}

	inRanks := make([]int32, nIns)
	for i, nd := range o.cfg.InsNDim {
		inRanks[i] = int32(nd)
	}
	outRanks := make([]int32, nOuts)
	for outID, nd := range o.cfg.OutsNDim {
		outRanks[outID] = int32(nd)
		o.outShapes[outID] = o.outShapes[outID][:0]
		for i := 0; i < n; i++ {
			shape := make(batch.Shape, nd)
			o.outShapes[outID] = append(o.outShapes[outID], shape)
			o.outShapePtrs[outID*n+i] = shapeAddr(shape)
		}
	}

	if err := o.backend.InferShapes(o.cfg.SetupFn,
		o.outShapePtrs, outRanks, o.inShapePtrs, inRanks, int32(n)); err != nil {
		return nil, fmt.Errorf("shape inference entry point failed: %w", err)
	}

	for outID := 0; outID < nOuts; outID++ {
		for i := 0; i < n; i++ {
			for d, ext := range o.outShapes[outID][i] {
				if ext < 0 {
					return nil, fmt.Errorf("%w: after the setup function, shape for output %d in sample %d at axis %d is negative: %d",
						op.ErrInvalidInferredShape, outID, i, d, ext)
				}
			}
		}
	}

	descs := make([]op.OutputDesc, nOuts)
	for outID := 0; outID < nOuts; outID++ {
		for i := 0; i < n; i++ {
			o.outSizes = append(o.outSizes, calcSizes(o.cfg.OutTypes[outID], o.outShapes[outID][i]))
		}
		descs[outID] = op.OutputDesc{Shapes: o.outShapes[outID], Type: o.cfg.OutTypes[outID]}
	}
	return descs, nil
}

// Run resolves per-sample memory, marshals the flat argument list and
// issues one launch per sample on the workspace stream. Launches are
// enqueued asynchronously; completion is the stream's responsibility.
func (o *Operator) Run(ws *op.Workspace) error {
	o.BeginRun()
	start := time.Now()

	nIns := len(o.cfg.InTypes)
	nOuts := len(o.cfg.OutTypes)
	n := ws.Input(0).Len()

	for outID := 0; outID < nOuts; outID++ {
		out := ws.Output(outID)
		for i := 0; i < n; i++ {
			o.outPtrs[outID*n+i] = out.Sample(i).Addr()
		}
	}
	for inID := 0; inID < nIns; inID++ {
		in := ws.Input(inID)
		for i := 0; i < n; i++ {
			o.inPtrs[inID*n+i] = in.Sample(i).Addr()
		}
	}

	blockThreads := o.cfg.ThreadsPerBlock.Volume()
	advised := false
	for i := 0; i < n; i++ {
		args := o.args[:0]
		for outID := 0; outID < nOuts; outID++ {
			args = appendFrame(args, &o.outHdrs[outID], o.outSizes[outID*n+i], &o.outPtrs[outID*n+i])
		}
		for inID := 0; inID < nIns; inID++ {
			args = appendFrame(args, &o.inHdrs[inID], o.inSizes[inID*n+i], &o.inPtrs[inID*n+i])
		}
		o.args = args

		blocksPerUnit, err := o.backend.Occupancy(o.cfg.RunFn, blockThreads)
		if err != nil {
			return fmt.Errorf("%w: occupancy query: %v", op.ErrKernelLaunchFailed, err)
		}
		if blocksPerUnit == 0 {
			return fmt.Errorf("%w: %d threads per block is too many for the provided kernel",
				op.ErrLaunchConfigInfeasible, blockThreads)
		}
		// The geometry is identical for every launch in the batch, so the
		// advisory is emitted once per Run, not once per sample.
		if recommended := blocksPerUnit * o.backend.ComputeUnits(); o.cfg.Blocks.Volume() < recommended && !advised {
			advised = true
			metrics.LaunchAdvisories.Inc()
			o.log.Warn("grid volume below the recommended minimum for the provided kernel",
				zap.Int("grid_volume", o.cfg.Blocks.Volume()),
				zap.Int("recommended", recommended))
		}

		if err := o.backend.Launch(o.cfg.RunFn, o.cfg.Blocks, o.cfg.ThreadsPerBlock,
			0, ws.Stream, args); err != nil {
			return fmt.Errorf("%w: sample %d: %v", op.ErrKernelLaunchFailed, i, err)
		}
		metrics.KernelLaunches.Inc()
	}

	metrics.BatchDuration.WithLabelValues("native_kernel").Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

// reset reclaims scratch capacity for a new batch without reallocating
// what can be reused.
func (o *Operator) reset(nIns, nOuts, n int) {
	o.inSizes = o.inSizes[:0]
	o.outSizes = o.outSizes[:0]

	o.inHdrs = growHdrs(o.inHdrs, nIns)
	o.outHdrs = growHdrs(o.outHdrs, nOuts)
	o.inPtrs = growU64(o.inPtrs, nIns*n)
	o.outPtrs = growU64(o.outPtrs, nOuts*n)
	o.inShapePtrs = growU64(o.inShapePtrs, nIns*n)
	o.outShapePtrs = growU64(o.outShapePtrs, nOuts*n)

	if cap(o.outShapes) < nOuts {
		o.outShapes = make([][]batch.Shape, nOuts)
	}
	o.outShapes = o.outShapes[:nOuts]
}

func growHdrs(s [][2]uint64, n int) [][2]uint64 {
	if cap(s) < n {
		return make([][2]uint64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = [2]uint64{}
	}
	return s
}

func growU64(s []uint64, n int) []uint64 {
	if cap(s) < n {
		return make([]uint64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}
