package op

import "errors"

// Error taxonomy of the dispatch layer.
//
// Contract violations (schema, shape, type) are detected in Setup and
// reported with the offending field and index, never coerced.
// Configuration errors are detected at construction and are fatal for the
// operator instance. Runtime native-code errors abandon the current batch;
// nothing is retried internally.
var (
	// ErrSchemaMismatch: runtime inputs or outputs do not match the
	// operator's static declaration.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnsupportedTypeCombination: the (input type, output type) pair has
	// no registered compute primitive.
	ErrUnsupportedTypeCombination = errors.New("unsupported type combination")

	// ErrInputContractViolation: a runtime input's count, rank or type
	// disagrees with the declared in_types/ins_ndim.
	ErrInputContractViolation = errors.New("input contract violation")

	// ErrUnsupportedMode: a declared processing mode this build does not
	// support (detected at construction).
	ErrUnsupportedMode = errors.New("unsupported processing mode")

	// ErrInvalidConfig: malformed construction-time configuration.
	ErrInvalidConfig = errors.New("invalid operator configuration")

	// ErrInvalidInferredShape: a shape-inference callback produced a
	// negative extent.
	ErrInvalidInferredShape = errors.New("invalid inferred shape")

	// ErrLaunchConfigInfeasible: the occupancy query reports the declared
	// thread-block configuration cannot fit on the hardware.
	ErrLaunchConfigInfeasible = errors.New("launch configuration infeasible")

	// ErrKernelLaunchFailed: the driver rejected a kernel launch.
	ErrKernelLaunchFailed = errors.New("kernel launch failed")
)
