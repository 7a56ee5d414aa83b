package batch

import "testing"

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int64
	}{
		{Uint8, 1},
		{Int16, 2},
		{Int32, 4},
		{Int64, 8},
		{Float32, 4},
		{Float64, 8},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []DataType{Uint8, Int16, Int32, Int64, Float32, Float64} {
		got, err := ParseDataType(dt.String())
		if err != nil {
			t.Fatalf("ParseDataType(%q): %v", dt.String(), err)
		}
		if got != dt {
			t.Errorf("ParseDataType(%q) = %v, want %v", dt.String(), got, dt)
		}
	}
	if _, err := ParseDataType("complex128"); err == nil {
		t.Error("ParseDataType should reject unknown type names")
	}
}

func TestComputeStrides(t *testing.T) {
	s := Shape{2, 480, 640, 3}
	strides := s.ComputeStrides(Float32.Size())

	// Last axis stride is the element size, each previous axis is the
	// running product stride(k+1) * extent(k+1).
	if strides[len(strides)-1] != 4 {
		t.Errorf("last stride = %d, want element size 4", strides[len(strides)-1])
	}
	for k := 0; k < len(strides)-1; k++ {
		if strides[k] != strides[k+1]*s[k+1] {
			t.Errorf("stride[%d] = %d, want %d", k, strides[k], strides[k+1]*s[k+1])
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{3, 0, 5}).Validate(); err != nil {
		t.Errorf("zero extents are legal, got %v", err)
	}
	if err := (Shape{3, -1}).Validate(); err == nil {
		t.Error("negative extent should fail validation")
	}
}

func TestLayoutFrameAxis(t *testing.T) {
	tests := []struct {
		layout Layout
		axis   int
	}{
		{"FHWC", 0},
		{"HWC", -1},
		{"", -1},
		{"HFWC", 1},
	}
	for _, tt := range tests {
		if got := tt.layout.FrameAxis(); got != tt.axis {
			t.Errorf("Layout(%q).FrameAxis() = %d, want %d", tt.layout, got, tt.axis)
		}
	}
	if got := Layout("FHWC").DropAxis(0); got != "HWC" {
		t.Errorf("DropAxis(0) = %q, want HWC", got)
	}
}

func TestSampleFrame(t *testing.T) {
	s, err := AllocSample(Shape{2, 3}, Uint8)
	if err != nil {
		t.Fatal(err)
	}
	for i := range s.Uint8s() {
		s.Uint8s()[i] = uint8(i)
	}

	f, err := s.Frame(1)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Shape().Equal(Shape{3}) {
		t.Errorf("frame shape = %v, want [3]", f.Shape())
	}
	want := []uint8{3, 4, 5}
	for i, v := range f.Uint8s() {
		if v != want[i] {
			t.Errorf("frame[%d] = %d, want %d", i, v, want[i])
		}
	}

	// Frame views alias the parent buffer.
	f.Uint8s()[0] = 99
	if s.Uint8s()[3] != 99 {
		t.Error("frame view does not alias sample memory")
	}

	if _, err := s.Frame(2); err == nil {
		t.Error("out-of-range frame index should fail")
	}
}

func TestNewSampleSizeCheck(t *testing.T) {
	if _, err := NewSample(make([]byte, 11), Shape{3, 4}, Uint8); err == nil {
		t.Error("mismatched buffer size should fail")
	}
	if _, err := NewSample(make([]byte, 12), Shape{3, 4}, Uint8); err != nil {
		t.Errorf("exact buffer size should succeed, got %v", err)
	}
}

func TestNewBatchValidation(t *testing.T) {
	a, _ := AllocSample(Shape{2, 2}, Float32)
	b, _ := AllocSample(Shape{4, 7}, Float32)
	c, _ := AllocSample(Shape{4, 7, 1}, Float32)
	d, _ := AllocSample(Shape{4, 7}, Int32)

	if _, err := New([]*Sample{a, b}, ""); err != nil {
		t.Errorf("ragged batch with uniform rank/type should succeed, got %v", err)
	}
	if _, err := New([]*Sample{a, c}, ""); err == nil {
		t.Error("mixed rank should fail")
	}
	if _, err := New([]*Sample{a, d}, ""); err == nil {
		t.Error("mixed dtype should fail")
	}
	if _, err := New([]*Sample{a, b}, "FHW"); err == nil {
		t.Error("layout length mismatching rank should fail")
	}
	if _, err := New(nil, ""); err == nil {
		t.Error("empty batch should fail")
	}
}

func TestDeviceSampleAddr(t *testing.T) {
	s, err := NewDeviceSample(0xdeadbeef, Shape{8}, Float32)
	if err != nil {
		t.Fatal(err)
	}
	if s.Addr() != 0xdeadbeef {
		t.Errorf("Addr() = %#x, want 0xdeadbeef", s.Addr())
	}
	if s.Data() != nil {
		t.Error("device sample should have no host data")
	}
	if _, err := NewDeviceSample(0, Shape{8}, Float32); err == nil {
		t.Error("nil address for non-empty shape should fail")
	}
	if _, err := NewDeviceSample(0, Shape{0}, Float32); err != nil {
		t.Errorf("nil address for empty shape is legal, got %v", err)
	}
}
