package models

import "errors"

// Engine-level error taxonomy. Fitting failures are recovered internally via
// the documented fallback chains; ErrInvalidParameter is the only category
// surfaced to callers immediately, since it indicates a contract violation
// rather than a transient numerical issue.
var (
	// ErrInsufficientData means the series is too short for the requested algorithm.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrInvalidParameter means a caller supplied a non-positive cost, demand,
	// capacity or horizon. Fail fast.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrModelFit means a numerical fit did not converge.
	ErrModelFit = errors.New("model fitting failed")

	// ErrInfeasible means the solver found no allocation satisfying the hard constraints.
	ErrInfeasible = errors.New("constraints infeasible")

	// ErrSolverTimeout means a solve exceeded the caller's deadline.
	ErrSolverTimeout = errors.New("solver timed out")
)
