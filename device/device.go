// Package device provides the public surface of the accelerator driver
// boundary: kernel handles, streams, launch geometry and the Backend
// interface the native engine dispatches through.
package device

import (
	"github.com/batchflow-ml/batchflow/internal/device"
)

// Kernel is an opaque entry-point address obtained from a foreign
// compiler or driver.
type Kernel = device.Kernel

// Stream identifies the asynchronous execution queue launches enqueue on.
type Stream = device.Stream

// Dim3 is a three-dimensional launch extent.
type Dim3 = device.Dim3

// Backend is the driver surface the native engine needs: occupancy
// queries, launches and the shape-inference callback.
type Backend = device.Backend

// ErrUnavailable reports that no accelerator driver is present.
var ErrUnavailable = device.ErrUnavailable
