package mineos

import "errors"

// Error kinds surfaced by the solver pipeline. Every external-process stage
// fails with a distinct kind so callers can tell an unusable model from a
// hung binary from an exhausted search.
var (
	// ErrSolverTimeout reports that the external solver was killed after
	// exceeding its wall-clock budget.
	ErrSolverTimeout = errors.New("mineos: solver timed out")

	// ErrSolverCrash reports a nonzero exit from the external solver.
	ErrSolverCrash = errors.New("mineos: solver exited nonzero")

	// ErrParse reports a malformed results file.
	ErrParse = errors.New("mineos: malformed results")

	// ErrConvergence reports that the run ceiling was reached before the
	// accumulated runs covered the shortest requested period.
	ErrConvergence = errors.New("mineos: run ceiling reached before covering requested periods")

	// ErrRepair reports a failed eigenfunction repair invocation.
	ErrRepair = errors.New("mineos: eigenfunction repair failed")

	// ErrQCorrection reports a failed attenuation-correction invocation.
	ErrQCorrection = errors.New("mineos: attenuation correction failed")
)
