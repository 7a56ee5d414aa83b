// Package op provides the public operator contract: the two-phase
// Setup/Run lifecycle, the workspace that carries a batch through an
// operator, and output allocation.
package op

import (
	"github.com/batchflow-ml/batchflow/internal/op"
)

// Operator is the two-phase batched-compute contract. Setup declares
// output shapes and types without touching sample data; Run computes.
type Operator = op.Operator

// OutputDesc declares one output slot: per-sample shapes and the type.
type OutputDesc = op.OutputDesc

// Workspace carries the inputs, outputs and execution resources for one
// batch through an operator.
type Workspace = op.Workspace

// Lifecycle tracks the Setup-before-Run ordering; embed it in operator
// implementations.
type Lifecycle = op.Lifecycle

// Allocator materializes output batches from descriptors.
type Allocator = op.Allocator

// HostAllocator allocates outputs in host memory.
type HostAllocator = op.HostAllocator

// Execute runs one batch through an operator: Setup, output allocation,
// Run.
func Execute(o Operator, ws *Workspace, alloc Allocator) error {
	return op.Execute(o, ws, alloc)
}

// Sentinel errors reported by operators and engines.
var (
	ErrSchemaMismatch             = op.ErrSchemaMismatch
	ErrUnsupportedTypeCombination = op.ErrUnsupportedTypeCombination
	ErrInputContractViolation     = op.ErrInputContractViolation
	ErrUnsupportedMode            = op.ErrUnsupportedMode
	ErrInvalidConfig              = op.ErrInvalidConfig
	ErrInvalidInferredShape       = op.ErrInvalidInferredShape
	ErrLaunchConfigInfeasible     = op.ErrLaunchConfigInfeasible
	ErrKernelLaunchFailed         = op.ErrKernelLaunchFailed
)
