package cpu

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/metrics"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// multiplyAddBaseRank is the rank of one image (height, width, channel).
// Rank baseRank+1 samples are sequences and decompose per frame.
const multiplyAddBaseRank = 3

// MultiplyAddConfig configures a MultiplyAdd operator.
//
// The computation per element is out = add*outputRange + mul*in, where
// outputRange is 1 for float outputs and the maximum positive value for
// integral outputs. This is the brightness/contrast family of point
// operators; it can also change the element type.
type MultiplyAddConfig struct {
	Mul float64 `yaml:"mul"`
	Add float64 `yaml:"add"`
	// MulArg and AddArg optionally override mul/add with one value per
	// sample; when non-empty, the length must equal the batch size.
	MulArg []float64 `yaml:"mul_arg"`
	AddArg []float64 `yaml:"add_arg"`
	// OutType optionally changes the output element type; empty keeps the
	// input type.
	OutType string `yaml:"out_type"`
}

// MultiplyAdd is a CPU point operator over image or image-sequence batches.
type MultiplyAdd struct {
	op.Lifecycle

	log *zap.Logger
	cfg MultiplyAddConfig

	outType    batch.DataType
	hasOutType bool

	// Resolved once per Setup, cached for the batch's Run.
	kernel   maKernel
	outRange float64
}

// NewMultiplyAdd validates the configuration and builds the operator.
func NewMultiplyAdd(cfg MultiplyAddConfig, log *zap.Logger) (*MultiplyAdd, error) {
	m := &MultiplyAdd{log: log, cfg: cfg}
	if cfg.OutType != "" {
		dt, err := batch.ParseDataType(cfg.OutType)
		if err != nil {
			return nil, fmt.Errorf("%w: out_type: %v", op.ErrInvalidConfig, err)
		}
		m.outType = dt
		m.hasOutType = true
	}
	return m, nil
}

// outputRange returns the add-term scale for a dtype: 1 for floats, the
// maximum positive value for integral types.
func outputRange(dt batch.DataType) float64 {
	switch dt {
	case batch.Uint8:
		return 255
	case batch.Int16:
		return 32767
	case batch.Int32:
		return 2147483647
	default:
		return 1
	}
}

// Setup infers output shapes and types. No sample data is touched.
func (m *MultiplyAdd) Setup(ws *op.Workspace) ([]op.OutputDesc, error) {
	if ws.NumInput() != 1 {
		return nil, fmt.Errorf("%w: expected 1 input, got %d", op.ErrSchemaMismatch, ws.NumInput())
	}
	in := ws.Input(0)

	rank := in.Rank()
	switch {
	case rank == multiplyAddBaseRank:
	case rank == multiplyAddBaseRank+1 && in.Layout().HasFrames():
	default:
		return nil, fmt.Errorf("%w: rank %d with layout %q is not supported; want rank %d or a frame-tagged rank %d",
			op.ErrSchemaMismatch, rank, in.Layout(), multiplyAddBaseRank, multiplyAddBaseRank+1)
	}
	if l := in.Layout(); l != "" && l[len(l)-1] != 'C' {
		return nil, fmt.Errorf("%w: only channel-last or empty layouts are supported, got %q",
			op.ErrSchemaMismatch, l)
	}
	if _, err := frameDecomposition(in, multiplyAddBaseRank); err != nil {
		return nil, err
	}
	if n := len(m.cfg.MulArg); n != 0 && n != in.Len() {
		return nil, fmt.Errorf("%w: mul_arg has %d values for a batch of %d samples",
			op.ErrSchemaMismatch, n, in.Len())
	}
	if n := len(m.cfg.AddArg); n != 0 && n != in.Len() {
		return nil, fmt.Errorf("%w: add_arg has %d values for a batch of %d samples",
			op.ErrSchemaMismatch, n, in.Len())
	}

	outType := in.DType()
	if m.hasOutType {
		outType = m.outType
	}
	kernel, err := resolveMAKernel(in.DType(), outType)
	if err != nil {
		return nil, err
	}
	m.kernel = kernel
	m.outRange = outputRange(outType)

	m.SetupDone()
	return []op.OutputDesc{{Shapes: in.Shapes(), Type: outType, Layout: in.Layout()}}, nil
}

// argsFor resolves the mul/add pair for one sample, preferring the
// per-sample argument lists over the scalar defaults.
func (m *MultiplyAdd) argsFor(sample int) (mul, add float64) {
	mul, add = m.cfg.Mul, m.cfg.Add
	if len(m.cfg.MulArg) > 0 {
		mul = m.cfg.MulArg[sample]
	}
	if len(m.cfg.AddArg) > 0 {
		add = m.cfg.AddArg[sample]
	}
	return mul, add
}

// Run applies the multiply-add primitive across the batch on the worker
// pool, one item per sample or per frame.
func (m *MultiplyAdd) Run(ws *op.Workspace) error {
	m.BeginRun()
	start := time.Now()

	in := ws.Input(0)
	outType := ws.Output(0).DType()
	kernel, err := resolveMAKernel(in.DType(), outType)
	if err != nil {
		return err
	}

	err = Dispatch(ws, "multiply_add", multiplyAddBaseRank,
		func(thread int, out, in *batch.Sample, sample, frame int) error {
			mul, add := m.argsFor(sample)
			return kernel(out, in, mul, add*m.outRange)
		})
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.BatchDuration.WithLabelValues("multiply_add").Observe(float64(elapsed.Milliseconds()))
	m.log.Debug("multiply_add batch done",
		zap.Int("samples", in.Len()),
		zap.Duration("elapsed", elapsed))
	return nil
}
