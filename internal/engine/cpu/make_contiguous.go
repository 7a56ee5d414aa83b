package cpu

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/metrics"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// MakeContiguous rewrites a batch into dense row-major sample buffers,
// mirroring shapes and type. Samples are copied in parallel, heaviest
// first.
type MakeContiguous struct {
	op.Lifecycle
	log *zap.Logger
}

// NewMakeContiguous builds the operator.
func NewMakeContiguous(log *zap.Logger) *MakeContiguous {
	return &MakeContiguous{log: log}
}

// Setup mirrors the input's shapes and type.
func (c *MakeContiguous) Setup(ws *op.Workspace) ([]op.OutputDesc, error) {
	if ws.NumInput() != 1 {
		return nil, fmt.Errorf("%w: expected 1 input, got %d", op.ErrSchemaMismatch, ws.NumInput())
	}
	in := ws.Input(0)
	c.SetupDone()
	return []op.OutputDesc{{Shapes: in.Shapes(), Type: in.DType(), Layout: in.Layout()}}, nil
}

// Run copies every sample into its freshly allocated output buffer.
func (c *MakeContiguous) Run(ws *op.Workspace) error {
	c.BeginRun()
	start := time.Now()

	// Base rank equal to the batch rank: one item per sample, never
	// decomposed.
	err := Dispatch(ws, "make_contiguous", ws.Input(0).Rank(),
		func(thread int, out, in *batch.Sample, sample, frame int) error {
			if copied := copy(out.Data(), in.Data()); int64(copied) != in.ByteSize() {
				return fmt.Errorf("sample %d: copied %d of %d bytes", sample, copied, in.ByteSize())
			}
			return nil
		})
	if err != nil {
		return err
	}

	metrics.BatchDuration.WithLabelValues("make_contiguous").Observe(float64(time.Since(start).Milliseconds()))
	c.log.Debug("make_contiguous batch done", zap.Int("samples", ws.Input(0).Len()))
	return nil
}
