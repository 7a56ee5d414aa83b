//go:build cuda

package device

/*
#cgo LDFLAGS: -lcuda

#include <cuda.h>
#include <stdint.h>

typedef void (*bf_shape_fn)(void*, const void*, int32_t, const void*, const void*, int32_t, int32_t);

static void bf_call_shape_fn(uint64_t fn,
                             void *out_ptrs, void *out_ranks, int32_t nout,
                             void *in_ptrs, void *in_ranks, int32_t nin,
                             int32_t n) {
	((bf_shape_fn)(uintptr_t)fn)(out_ptrs, out_ranks, nout, in_ptrs, in_ranks, nin, n);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// cudaBackend drives kernels through the CUDA driver API. The device
// context is expected to be current on the calling thread; context
// lifecycle management belongs to the enclosing pipeline.
type cudaBackend struct {
	dev   C.CUdevice
	smCnt int
}

// Detect returns a CUDA driver backend for device 0.
func Detect() (Backend, error) {
	var dev C.CUdevice
	if rc := C.cuDeviceGet(&dev, 0); rc != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("%w: cuDeviceGet: %s", ErrUnavailable, errName(rc))
	}
	var sm C.int
	if rc := C.cuDeviceGetAttribute(&sm, C.CU_DEVICE_ATTRIBUTE_MULTIPROCESSOR_COUNT, dev); rc != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("%w: cuDeviceGetAttribute: %s", ErrUnavailable, errName(rc))
	}
	return &cudaBackend{dev: dev, smCnt: int(sm)}, nil
}

func (b *cudaBackend) Occupancy(k Kernel, blockThreads int) (int, error) {
	var blocks C.int
	rc := C.cuOccupancyMaxActiveBlocksPerMultiprocessor(
		&blocks, C.CUfunction(unsafe.Pointer(uintptr(k))), C.int(blockThreads), 0)
	if rc != C.CUDA_SUCCESS {
		return 0, fmt.Errorf("occupancy query failed: %s", errName(rc))
	}
	return int(blocks), nil
}

func (b *cudaBackend) ComputeUnits() int {
	return b.smCnt
}

func (b *cudaBackend) Launch(k Kernel, grid, block Dim3, sharedBytes int, s Stream, args []unsafe.Pointer) error {
	var argp *unsafe.Pointer
	if len(args) > 0 {
		argp = &args[0]
	}
	rc := C.cuLaunchKernel(C.CUfunction(unsafe.Pointer(uintptr(k))),
		C.uint(grid[0]), C.uint(grid[1]), C.uint(grid[2]),
		C.uint(block[0]), C.uint(block[1]), C.uint(block[2]),
		C.uint(sharedBytes), C.CUstream(unsafe.Pointer(s)),
		argp, nil)
	if rc != C.CUDA_SUCCESS {
		return fmt.Errorf("cuLaunchKernel: %s (code %d)", errName(rc), int(rc))
	}
	return nil
}

func (b *cudaBackend) InferShapes(fn Kernel, outShapePtrs []uint64, outRanks []int32,
	inShapePtrs []uint64, inRanks []int32, batchSize int32) error {
	C.bf_call_shape_fn(C.uint64_t(fn),
		unsafe.Pointer(&outShapePtrs[0]), unsafe.Pointer(&outRanks[0]), C.int32_t(len(outRanks)),
		unsafe.Pointer(&inShapePtrs[0]), unsafe.Pointer(&inRanks[0]), C.int32_t(len(inRanks)),
		C.int32_t(batchSize))
	return nil
}

func errName(rc C.CUresult) string {
	var p *C.char
	if C.cuGetErrorName(rc, &p) != C.CUDA_SUCCESS {
		return "unknown CUDA error"
	}
	return C.GoString(p)
}
