package cpu

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// The multiply-add compute primitive is dispatched over a static
// (input type x output type) matrix. The matrix is resolved once per
// Setup and the resolved kernel cached for the batch's Run.

type typePair struct {
	in, out batch.DataType
}

// maKernel computes dst = sat(add + mul*src) element-wise.
type maKernel func(out, in *batch.Sample, mul, add float64) error

var maKernels = map[typePair]maKernel{}

type number interface {
	~uint8 | ~int16 | ~int32 | ~float32 | ~float64
}

// satRange describes the output saturation window; integral outputs are
// rounded and clamped, float outputs pass through.
type satRange struct {
	lo, hi   float64
	integral bool
}

var satRanges = map[batch.DataType]satRange{
	batch.Uint8:   {0, math.MaxUint8, true},
	batch.Int16:   {math.MinInt16, math.MaxInt16, true},
	batch.Int32:   {math.MinInt32, math.MaxInt32, true},
	batch.Float32: {},
	batch.Float64: {},
}

func registerMA[In, Out number](in, out batch.DataType,
	inView func(*batch.Sample) []In, outView func(*batch.Sample) []Out) {
	sat := satRanges[out]
	maKernels[typePair{in, out}] = func(out, in *batch.Sample, mul, add float64) error {
		src := inView(in)
		dst := outView(out)
		if len(src) != len(dst) {
			return fmt.Errorf("element count mismatch: in %d, out %d", len(src), len(dst))
		}
		for i, v := range src {
			x := add + mul*float64(v)
			if sat.integral {
				x = math.Round(x)
				if x < sat.lo {
					x = sat.lo
				} else if x > sat.hi {
					x = sat.hi
				}
			}
			dst[i] = Out(x)
		}
		return nil
	}
}

func init() {
	registerMA(batch.Uint8, batch.Uint8, (*batch.Sample).Uint8s, (*batch.Sample).Uint8s)
	registerMA(batch.Uint8, batch.Int16, (*batch.Sample).Uint8s, (*batch.Sample).Int16s)
	registerMA(batch.Uint8, batch.Int32, (*batch.Sample).Uint8s, (*batch.Sample).Int32s)
	registerMA(batch.Uint8, batch.Float32, (*batch.Sample).Uint8s, (*batch.Sample).Float32s)
	registerMA(batch.Int16, batch.Uint8, (*batch.Sample).Int16s, (*batch.Sample).Uint8s)
	registerMA(batch.Int16, batch.Int16, (*batch.Sample).Int16s, (*batch.Sample).Int16s)
	registerMA(batch.Int16, batch.Int32, (*batch.Sample).Int16s, (*batch.Sample).Int32s)
	registerMA(batch.Int16, batch.Float32, (*batch.Sample).Int16s, (*batch.Sample).Float32s)
	registerMA(batch.Int32, batch.Uint8, (*batch.Sample).Int32s, (*batch.Sample).Uint8s)
	registerMA(batch.Int32, batch.Int16, (*batch.Sample).Int32s, (*batch.Sample).Int16s)
	registerMA(batch.Int32, batch.Int32, (*batch.Sample).Int32s, (*batch.Sample).Int32s)
	registerMA(batch.Int32, batch.Float32, (*batch.Sample).Int32s, (*batch.Sample).Float32s)
	registerMA(batch.Float32, batch.Uint8, (*batch.Sample).Float32s, (*batch.Sample).Uint8s)
	registerMA(batch.Float32, batch.Int16, (*batch.Sample).Float32s, (*batch.Sample).Int16s)
	registerMA(batch.Float32, batch.Int32, (*batch.Sample).Float32s, (*batch.Sample).Int32s)
	registerMA(batch.Float32, batch.Float32, (*batch.Sample).Float32s, (*batch.Sample).Float32s)

	// float64 stays in float64; the contiguous case vectorizes through gonum.
	maKernels[typePair{batch.Float64, batch.Float64}] = maFloat64
}

func maFloat64(out, in *batch.Sample, mul, add float64) error {
	src := in.Float64s()
	dst := out.Float64s()
	if len(src) != len(dst) {
		return fmt.Errorf("element count mismatch: in %d, out %d", len(src), len(dst))
	}
	if len(src) == 0 {
		return nil
	}
	floats.ScaleTo(dst, mul, src)
	floats.AddConst(add, dst)
	return nil
}

// resolveMAKernel looks up the kernel for a type pair. Checked in Setup as
// well as Run, so shape negotiation never proceeds for unsupported types.
func resolveMAKernel(in, out batch.DataType) (maKernel, error) {
	k, ok := maKernels[typePair{in, out}]
	if !ok {
		return nil, fmt.Errorf("%w: input %s, output %s", op.ErrUnsupportedTypeCombination, in, out)
	}
	return k, nil
}
