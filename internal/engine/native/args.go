package native

import (
	"unsafe"

	"github.com/batchflow-ml/batchflow/internal/batch"
)

// Argument marshaling for the foreign kernel ABI. The kernel receives one
// pointer per argument cell; per sample the flat list holds one
// ArgumentFrame per output slot, then one per input slot, in declared slot
// order, never permuted across calls.
//
// One slot's frame (frameCells cells):
//
//	[0] header cell (null)
//	[1] header cell (null)
//	[2] element count
//	[3] element byte size
//	[4] raw data address
//	[5 .. 5+rank)        extents, axis order
//	[5+rank .. 5+2*rank) byte strides, axis order
//
// The data address sits at the fixed interior offset the foreign calling
// convention expects.

const dataPtrOffset = 4

func frameCells(rank int) int {
	return 5 + 2*rank
}

// calcSizes computes one sample's size/stride block:
// [volume, elemSize, extents..., strides...]. Strides are a right-to-left
// running product: the last axis strides by the element size, axis k by
// stride(k+1) * extent(k+1).
func calcSizes(dtype batch.DataType, shape batch.Shape) []int64 {
	sizes := make([]int64, 0, 2+2*len(shape))
	sizes = append(sizes, shape.Volume(), dtype.Size())
	sizes = append(sizes, shape...)
	sizes = append(sizes, shape.ComputeStrides(dtype.Size())...)
	return sizes
}

// appendFrame appends one slot's ArgumentFrame for one sample. hdr, sizes
// and dataPtr are engine-owned scratch that stays valid through the
// launch.
func appendFrame(args []unsafe.Pointer, hdr *[2]uint64, sizes []int64, dataPtr *uint64) []unsafe.Pointer {
	args = append(args,
		unsafe.Pointer(&hdr[0]),
		unsafe.Pointer(&hdr[1]),
		unsafe.Pointer(&sizes[0]), // element count
		unsafe.Pointer(&sizes[1]), // element byte size
		unsafe.Pointer(dataPtr),
	)
	for k := 2; k < len(sizes); k++ {
		args = append(args, unsafe.Pointer(&sizes[k]))
	}
	return args
}

// shapeAddr resolves the address of a shape's extent buffer for the
// shape-inference pointer tables. Rank-0 shapes have no extents.
func shapeAddr(s batch.Shape) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s[0])))
}
