// Package batch provides the core batch, sample and shape types for the
// batchflow dispatch layer.
package batch

import "fmt"

// DataType represents runtime element type information for samples.
type DataType int

// Supported element types for samples.
const (
	Uint8 DataType = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int64 {
	switch dt {
	case Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseDataType converts a type name as it appears in configuration files
// into a DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "uint8":
		return Uint8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", name)
	}
}
