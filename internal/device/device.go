// Package device defines the GPU collaborator interface the native-kernel
// dispatch engine is built against, plus the CUDA driver adapter.
//
// The engine never introspects foreign code: a kernel is a raw entry-point
// address trusted (not verified) to implement the expected signature. Every
// foreign call crosses through the Backend implementation, so the unsafe
// boundary stays in one place.
package device

import (
	"errors"
	"unsafe"
)

// Kernel is an opaque foreign entry-point address. It is validated for
// non-null-ness only.
type Kernel uint64

// Stream identifies the ordered execution stream launches are enqueued on.
// Ownership stays with the enclosing pipeline.
type Stream uintptr

// Dim3 is a 3-component launch extent (block counts or threads per block).
type Dim3 [3]int

// Volume returns the product of the three components.
func (d Dim3) Volume() int {
	return d[0] * d[1] * d[2]
}

// ErrUnavailable is returned by Detect when no GPU driver backend was
// compiled in or no device is present.
var ErrUnavailable = errors.New("no GPU backend available")

// Backend is the injected driver collaborator.
//
// Launch enqueues asynchronously: completion ordering and visibility are
// the stream's responsibility, not the backend's. args holds one pointer
// per kernel parameter cell, in the exact order the foreign ABI expects;
// the pointed-to storage must stay valid for the duration of the call.
type Backend interface {
	// Occupancy reports how many blocks of blockThreads threads each can
	// run concurrently per compute unit for the given kernel. Zero means
	// the configuration cannot fit on the hardware.
	Occupancy(k Kernel, blockThreads int) (int, error)

	// ComputeUnits returns the number of compute units (SMs) on the device.
	ComputeUnits() int

	// Launch issues one kernel launch with the given geometry on the stream.
	Launch(k Kernel, grid, block Dim3, sharedBytes int, s Stream, args []unsafe.Pointer) error

	// InferShapes invokes a host shape-inference entry point with the
	// foreign callback ABI: the callee writes extents in place through the
	// per-sample shape pointers.
	InferShapes(fn Kernel, outShapePtrs []uint64, outRanks []int32,
		inShapePtrs []uint64, inRanks []int32, batchSize int32) error
}
