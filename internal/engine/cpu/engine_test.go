package cpu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/op"
	"github.com/batchflow-ml/batchflow/internal/pool"
)

func hostBatch(t *testing.T, shapes []batch.Shape, dtype batch.DataType, layout batch.Layout) *batch.Batch {
	t.Helper()
	samples := make([]*batch.Sample, len(shapes))
	for i, sh := range shapes {
		s, err := batch.AllocSample(sh, dtype)
		require.NoError(t, err)
		samples[i] = s
	}
	b, err := batch.New(samples, layout)
	require.NoError(t, err)
	return b
}

func workspace(t *testing.T, in *batch.Batch, workers int) (*op.Workspace, func()) {
	t.Helper()
	p := pool.New(workers)
	return &op.Workspace{Inputs: []*batch.Batch{in}, Pool: p}, p.Close
}

func TestPlanWorkOrdersByWeightDescending(t *testing.T) {
	// Samples with volumes 10, 1000, 50 must be submitted as 1000, 50, 10.
	in := hostBatch(t, []batch.Shape{{1, 10, 1}, {10, 100, 1}, {5, 10, 1}}, batch.Uint8, "")
	items, err := planWork(in, 3)
	require.NoError(t, err)

	weights := make([]int64, len(items))
	for i, it := range items {
		weights[i] = it.weight
	}
	assert.Equal(t, []int64{1000, 50, 10}, weights)
	assert.Equal(t, []int{1, 2, 0}, []int{items[0].sample, items[1].sample, items[2].sample})
}

func TestPlanWorkDecomposesFrames(t *testing.T) {
	// Rank 4 with a leading F axis: one item per frame, weighted by the
	// frame volume (sequence axis excluded).
	in := hostBatch(t, []batch.Shape{{3, 4, 5, 1}, {2, 8, 8, 1}}, batch.Uint8, "FHWC")
	items, err := planWork(in, 3)
	require.NoError(t, err)
	require.Len(t, items, 5)

	// Two frames of volume 64 first, then three of volume 20.
	assert.Equal(t, int64(64), items[0].weight)
	assert.Equal(t, int64(64), items[1].weight)
	for _, it := range items[2:] {
		assert.Equal(t, int64(20), it.weight)
	}
}

func TestPlanWorkRejectsInteriorSequenceAxis(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{4, 3, 5, 1}}, batch.Uint8, "HFWC")
	_, err := planWork(in, 3)
	require.ErrorIs(t, err, op.ErrSchemaMismatch)
}

func TestPlanWorkNoLayoutNoDecomposition(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{3, 4, 5, 1}}, batch.Uint8, "")
	items, err := planWork(in, 3)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, -1, items[0].frame)
}

func TestDispatchExecutesDecompositionExactlyOnce(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{2, 3, 2, 1}, {3, 2, 2, 1}}, batch.Uint8, "FHWC")
	ws, done := workspace(t, in, 4)
	defer done()

	var err error
	ws.Outputs, err = op.AllocateOutputs([]op.OutputDesc{{Shapes: in.Shapes(), Type: in.DType()}}, op.HostAllocator{})
	require.NoError(t, err)

	type unit struct{ sample, frame int }
	var mu sync.Mutex
	seen := map[unit]int{}

	require.NoError(t, Dispatch(ws, "test", 3,
		func(thread int, out, in *batch.Sample, sample, frame int) error {
			mu.Lock()
			seen[unit{sample, frame}]++
			mu.Unlock()
			return nil
		}))

	want := map[unit]int{
		{0, 0}: 1, {0, 1}: 1,
		{1, 0}: 1, {1, 1}: 1, {1, 2}: 1,
	}
	assert.Equal(t, want, seen)
}

func TestMultiplyAddBrightness(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 2, 2}}, batch.Uint8, "HWC")
	src := in.Sample(0).Uint8s()
	copy(src, []uint8{0, 10, 100, 200})

	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 2, Add: 0}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 2)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	// out = 2*in, saturated at 255.
	assert.Equal(t, []uint8{0, 20, 200, 255}, ws.Output(0).Sample(0).Uint8s())
}

func TestMultiplyAddTypeChangeAndAddScaling(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 2}}, batch.Uint8, "")
	copy(in.Sample(0).Uint8s(), []uint8{10, 20})

	// Float output: the add term scales by outputRange 1.
	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 0.5, Add: 1, OutType: "float32"}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	out := ws.Output(0)
	assert.Equal(t, batch.Float32, out.DType())
	assert.InDelta(t, 6.0, float64(out.Sample(0).Float32s()[0]), 1e-6)
	assert.InDelta(t, 11.0, float64(out.Sample(0).Float32s()[1]), 1e-6)
}

func TestMultiplyAddFloat64Path(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 3}}, batch.Float64, "")
	copy(in.Sample(0).Float64s(), []float64{1, 2, 3})

	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 3, Add: 0.5}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	assert.Equal(t, []float64{3.5, 6.5, 9.5}, ws.Output(0).Sample(0).Float64s())
}

func TestMultiplyAddPerFrame(t *testing.T) {
	// A 2-frame sequence: the primitive must cover both frames.
	in := hostBatch(t, []batch.Shape{{2, 1, 1, 2}}, batch.Int32, "FHWC")
	copy(in.Sample(0).Int32s(), []int32{1, 2, 3, 4})

	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 10, Add: 0}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 2)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	assert.Equal(t, []int32{10, 20, 30, 40}, ws.Output(0).Sample(0).Int32s())
}

func TestMultiplyAddUnsupportedTypesFailInSetup(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 1}}, batch.Int64, "")
	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 1}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	_, err = m.Setup(ws)
	require.ErrorIs(t, err, op.ErrUnsupportedTypeCombination)
	assert.Contains(t, err.Error(), "int64")
}

func TestMultiplyAddRankValidation(t *testing.T) {
	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 1}, zap.NewNop())
	require.NoError(t, err)

	// Rank 4 without a frame-tagged layout is rejected.
	in := hostBatch(t, []batch.Shape{{2, 2, 2, 2}}, batch.Uint8, "")
	ws, done := workspace(t, in, 1)
	defer done()
	_, err = m.Setup(ws)
	require.ErrorIs(t, err, op.ErrSchemaMismatch)

	// Channel axis must be last when a layout is present.
	in2 := hostBatch(t, []batch.Shape{{2, 2, 2}}, batch.Uint8, "CHW")
	ws2, done2 := workspace(t, in2, 1)
	defer done2()
	_, err = m.Setup(ws2)
	require.ErrorIs(t, err, op.ErrSchemaMismatch)
}

func TestMultiplyAddInteriorFrameAxisFailsInSetup(t *testing.T) {
	// A sequence axis that is not outermost must be rejected during shape
	// negotiation, before any output is allocated or Run is reached.
	in := hostBatch(t, []batch.Shape{{4, 3, 5, 1}}, batch.Uint8, "HFWC")
	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 1}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	_, err = m.Setup(ws)
	require.ErrorIs(t, err, op.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "outermost")
}

func TestMultiplyAddPropagatesLayout(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{2, 1, 1, 2}}, batch.Int32, "FHWC")
	m, err := NewMultiplyAdd(MultiplyAddConfig{Mul: 1}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	// A downstream operator must still see the sequence tagging.
	assert.Equal(t, batch.Layout("FHWC"), ws.Output(0).Layout())
}

func TestMultiplyAddPerSampleArguments(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 1}, {1, 1, 1}}, batch.Uint8, "")
	in.Sample(0).Uint8s()[0] = 10
	in.Sample(1).Uint8s()[0] = 10

	m, err := NewMultiplyAdd(MultiplyAddConfig{
		Mul:    1,
		MulArg: []float64{2, 3},
	}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 2)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	assert.Equal(t, uint8(20), ws.Output(0).Sample(0).Uint8s()[0])
	assert.Equal(t, uint8(30), ws.Output(0).Sample(1).Uint8s()[0])
}

func TestMultiplyAddPerSampleAddScalesByOutputRange(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 1}, {1, 1, 1}}, batch.Uint8, "")

	// Float output: range 1, so the add values land verbatim.
	m, err := NewMultiplyAdd(MultiplyAddConfig{
		AddArg:  []float64{0.5, 1.5},
		OutType: "float32",
	}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	require.NoError(t, op.Execute(m, ws, op.HostAllocator{}))

	assert.InDelta(t, 0.5, float64(ws.Output(0).Sample(0).Float32s()[0]), 1e-6)
	assert.InDelta(t, 1.5, float64(ws.Output(0).Sample(1).Float32s()[0]), 1e-6)
}

func TestMultiplyAddArgumentLengthMismatchFailsInSetup(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{1, 1, 1}, {1, 1, 1}}, batch.Uint8, "")
	m, err := NewMultiplyAdd(MultiplyAddConfig{MulArg: []float64{2, 3, 4}}, zap.NewNop())
	require.NoError(t, err)

	ws, done := workspace(t, in, 1)
	defer done()
	_, err = m.Setup(ws)
	require.ErrorIs(t, err, op.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "mul_arg")
}

func TestMultiplyAddInvalidOutTypeConfig(t *testing.T) {
	_, err := NewMultiplyAdd(MultiplyAddConfig{OutType: "complex64"}, zap.NewNop())
	require.ErrorIs(t, err, op.ErrInvalidConfig)
}

func TestMakeContiguousCopies(t *testing.T) {
	in := hostBatch(t, []batch.Shape{{2, 2}, {3, 1}}, batch.Float32, "")
	copy(in.Sample(0).Float32s(), []float32{1, 2, 3, 4})
	copy(in.Sample(1).Float32s(), []float32{5, 6, 7})

	c := NewMakeContiguous(zap.NewNop())
	ws, done := workspace(t, in, 2)
	defer done()
	require.NoError(t, op.Execute(c, ws, op.HostAllocator{}))

	assert.Equal(t, []float32{1, 2, 3, 4}, ws.Output(0).Sample(0).Float32s())
	assert.Equal(t, []float32{5, 6, 7}, ws.Output(0).Sample(1).Float32s())
}
