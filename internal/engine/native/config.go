// Package native implements the native-kernel dispatch engine: it invokes
// externally compiled GPU kernels, identified only by raw entry-point
// addresses, with runtime-computed per-sample shape/stride metadata and a
// caller-determined launch geometry.
package native

import (
	"fmt"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/device"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// maxSlots bounds the number of input and output slots an operator can
// declare.
const maxSlots = 6

// Config is the construction-time surface of a native-kernel operator.
// The entry points are opaque: they are validated for non-null-ness only,
// the system cannot introspect them.
type Config struct {
	// RunFn is the kernel entry point, required.
	RunFn device.Kernel
	// SetupFn is the optional shape-inference entry point. When zero, the
	// outputs mirror the inputs.
	SetupFn device.Kernel
	// BatchProcessing declares batched mode; only per-sample mode is
	// supported, so true fails construction.
	BatchProcessing bool

	InTypes  []batch.DataType
	OutTypes []batch.DataType
	InsNDim  []int
	OutsNDim []int

	Blocks          device.Dim3
	ThreadsPerBlock device.Dim3
}

// Validate checks the configuration. Violations are fatal for the
// operator instance and name the offending field and index.
func (c *Config) Validate() error {
	if c.RunFn == 0 {
		return fmt.Errorf("%w: run_fn must be a non-null entry point", op.ErrInvalidConfig)
	}
	if c.BatchProcessing {
		return fmt.Errorf("%w: batch processing is not supported for native kernels", op.ErrUnsupportedMode)
	}
	if len(c.OutTypes) > maxSlots {
		return fmt.Errorf("%w: trying to specify %d outputs, at most %d are supported",
			op.ErrInvalidConfig, len(c.OutTypes), maxSlots)
	}
	if len(c.InTypes) > maxSlots {
		return fmt.Errorf("%w: trying to specify %d inputs, at most %d are supported",
			op.ErrInvalidConfig, len(c.InTypes), maxSlots)
	}
	if len(c.InTypes) == 0 {
		return fmt.Errorf("%w: in_types must declare at least one input", op.ErrInvalidConfig)
	}
	if len(c.OutsNDim) != len(c.OutTypes) {
		return fmt.Errorf("%w: size of outs_ndim (%d) should match size of out_types (%d)",
			op.ErrInvalidConfig, len(c.OutsNDim), len(c.OutTypes))
	}
	for i, nd := range c.OutsNDim {
		if nd < 0 {
			return fmt.Errorf("%w: outs_ndim at index %d is negative: %d", op.ErrInvalidConfig, i, nd)
		}
	}
	if len(c.InsNDim) != len(c.InTypes) {
		return fmt.Errorf("%w: size of ins_ndim (%d) should match size of in_types (%d)",
			op.ErrInvalidConfig, len(c.InsNDim), len(c.InTypes))
	}
	for i, nd := range c.InsNDim {
		if nd < 0 {
			return fmt.Errorf("%w: ins_ndim at index %d is negative: %d", op.ErrInvalidConfig, i, nd)
		}
	}
	for i, v := range c.Blocks {
		if v < 0 {
			return fmt.Errorf("%w: blocks at index %d is negative: %d", op.ErrInvalidConfig, i, v)
		}
	}
	for i, v := range c.ThreadsPerBlock {
		if v < 0 {
			return fmt.Errorf("%w: threads_per_block at index %d is negative: %d", op.ErrInvalidConfig, i, v)
		}
	}
	return nil
}
