// Package native provides the public API of the native-kernel dispatch
// engine, which launches externally compiled GPU kernels per sample.
package native

import (
	"go.uber.org/zap"

	"github.com/batchflow-ml/batchflow/internal/device"
	"github.com/batchflow-ml/batchflow/internal/engine/native"
)

// Config declares a native-kernel operator: entry points, slot types and
// ranks, launch geometry.
type Config = native.Config

// Operator dispatches the declared kernel one launch per sample.
type Operator = native.Operator

// New validates the configuration and binds the operator to a driver
// backend.
func New(cfg Config, backend device.Backend, log *zap.Logger) (*Operator, error) {
	return native.New(cfg, backend, log)
}
