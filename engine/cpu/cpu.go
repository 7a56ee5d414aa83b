// Package cpu provides the public API of the CPU parallel dispatch
// engine and its built-in operators.
package cpu

import (
	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/engine/cpu"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// Primitive is the per-item compute callback dispatched over the pool.
type Primitive = cpu.Primitive

// Dispatch runs a primitive across a workspace's batch, one work item
// per sample or per frame, heaviest first.
func Dispatch(ws *op.Workspace, operator string, baseRank int, prim Primitive) error {
	return cpu.Dispatch(ws, operator, baseRank, prim)
}

// MultiplyAdd is the brightness/contrast family of point operators:
// out = add*range + mul*in, with optional output type change.
type MultiplyAdd = cpu.MultiplyAdd

// MultiplyAddConfig configures a MultiplyAdd operator.
type MultiplyAddConfig = cpu.MultiplyAddConfig

// NewMultiplyAdd validates the configuration and builds the operator.
func NewMultiplyAdd(cfg MultiplyAddConfig, log *zap.Logger) (*MultiplyAdd, error) {
	return cpu.NewMultiplyAdd(cfg, log)
}

// MakeContiguous copies a batch into dense per-sample buffers.
type MakeContiguous = cpu.MakeContiguous

// NewMakeContiguous builds the operator.
func NewMakeContiguous(log *zap.Logger) *MakeContiguous {
	return cpu.NewMakeContiguous(log)
}
