//go:build !cuda

package device

// Detect returns ErrUnavailable in builds without the cuda tag. Callers
// fall back to the CPU engine or inject their own Backend.
func Detect() (Backend, error) {
	return nil, ErrUnavailable
}
