// Package logger builds the zap logger used across the dispatch layer.
package logger

import (
	"go.uber.org/zap"
)

// New builds a production zap logger at the given verbosity
// ("debug", "info", "warn", "error").
func New(verbosity string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level
	return config.Build()
}
