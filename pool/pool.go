// Package pool provides the public API of the shared worker pool used by
// the CPU dispatch engine.
package pool

import (
	"github.com/batchflow-ml/batchflow/internal/pool"
)

// Pool is a fixed-size worker pool draining pending work heaviest first.
type Pool = pool.Pool

// Item is one unit of work; thread indexes the worker running it.
type Item = pool.Item

// New starts a pool with the given worker count. Panics when workers < 1.
func New(workers int) *Pool {
	return pool.New(workers)
}
