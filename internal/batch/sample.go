package batch

import (
	"fmt"
	"unsafe"
)

// Sample is one element of a batch: a shape, an element type and backing
// memory. The memory is either a host buffer owned by the sample or an
// externally owned raw device address (for device-resident batches whose
// allocation is managed by the enclosing pipeline).
type Sample struct {
	shape Shape
	dtype DataType
	data  []byte // host memory, nil for device samples
	addr  uint64 // raw device address, 0 for host samples
}

// NewSample wraps a host buffer. The buffer length must match the shape's
// byte volume exactly.
func NewSample(data []byte, shape Shape, dtype DataType) (*Sample, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	want := shape.Volume() * dtype.Size()
	if int64(len(data)) != want {
		return nil, fmt.Errorf("buffer size %d does not match shape %v of %s: want %d bytes",
			len(data), shape, dtype, want)
	}
	return &Sample{shape: shape.Clone(), dtype: dtype, data: data}, nil
}

// NewDeviceSample wraps externally owned device memory. The address is
// opaque to this layer; it is resolved into kernel arguments verbatim.
func NewDeviceSample(addr uint64, shape Shape, dtype DataType) (*Sample, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if addr == 0 && shape.Volume() > 0 {
		return nil, fmt.Errorf("nil device address for non-empty shape %v", shape)
	}
	return &Sample{shape: shape.Clone(), dtype: dtype, addr: addr}, nil
}

// AllocSample allocates a zeroed host sample for the given shape and type.
func AllocSample(shape Shape, dtype DataType) (*Sample, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Sample{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, shape.Volume()*dtype.Size()),
	}, nil
}

// Shape returns the sample's shape.
func (s *Sample) Shape() Shape {
	return s.shape
}

// DType returns the sample's element type.
func (s *Sample) DType() DataType {
	return s.dtype
}

// NumElements returns the total number of elements.
func (s *Sample) NumElements() int64 {
	return s.shape.Volume()
}

// ByteSize returns the total memory size in bytes.
func (s *Sample) ByteSize() int64 {
	return s.NumElements() * s.dtype.Size()
}

// Data returns the raw host byte slice, or nil for device samples.
func (s *Sample) Data() []byte {
	return s.data
}

// Addr resolves the sample's raw memory address. For device samples this
// is the configured address; for host samples it is the address of the
// first byte of the buffer. Empty samples resolve to 0.
func (s *Sample) Addr() uint64 {
	if s.data == nil {
		return s.addr
	}
	if len(s.data) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s.data[0])))
}

// Frame returns a view of one frame of the sample along axis 0. The view
// shares memory with the sample. Only host samples can be sliced.
func (s *Sample) Frame(i int) (*Sample, error) {
	if len(s.shape) == 0 {
		return nil, fmt.Errorf("cannot slice frames of a scalar sample")
	}
	if s.data == nil {
		return nil, fmt.Errorf("cannot slice frames of a device sample")
	}
	if i < 0 || int64(i) >= s.shape[0] {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", i, s.shape[0])
	}
	frameShape := s.shape[1:].Clone()
	frameBytes := frameShape.Volume() * s.dtype.Size()
	off := int64(i) * frameBytes
	return &Sample{
		shape: frameShape,
		dtype: s.dtype,
		data:  s.data[off : off+frameBytes],
	}, nil
}

// Typed views over host memory. All panic on a dtype mismatch or on a
// device sample: asking for the wrong view is a programming error, not a
// runtime condition.

// Uint8s interprets the data as []uint8.
func (s *Sample) Uint8s() []uint8 {
	s.checkView(Uint8)
	return s.data
}

// Int16s interprets the data as []int16.
func (s *Sample) Int16s() []int16 {
	s.checkView(Int16)
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&s.data[0])), s.NumElements())
}

// Int32s interprets the data as []int32.
func (s *Sample) Int32s() []int32 {
	s.checkView(Int32)
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&s.data[0])), s.NumElements())
}

// Int64s interprets the data as []int64.
func (s *Sample) Int64s() []int64 {
	s.checkView(Int64)
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&s.data[0])), s.NumElements())
}

// Float32s interprets the data as []float32.
func (s *Sample) Float32s() []float32 {
	s.checkView(Float32)
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&s.data[0])), s.NumElements())
}

// Float64s interprets the data as []float64.
func (s *Sample) Float64s() []float64 {
	s.checkView(Float64)
	if len(s.data) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&s.data[0])), s.NumElements())
}

func (s *Sample) checkView(want DataType) {
	if s.dtype != want {
		panic(fmt.Sprintf("sample dtype is %s, not %s", s.dtype, want))
	}
	if s.data == nil {
		panic("device sample has no host view")
	}
}
