package model

import "fmt"

// The error taxonomy for setup-time failures. Per-iteration numerical
// trouble (a covariance matrix failing its Cholesky factorization) is NOT an
// error value: it is absorbed into the Metropolis rejection mechanism and
// surfaced as a divergence count in the chain diagnostics.

// InvalidParameterError means a supplied hyperparameter or starting value
// violates its domain constraint. Raised before sampling starts; the run
// never silently clamps or substitutes a default.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// InvalidParameter creates an InvalidParameterError for the named parameter.
func InvalidParameter(param string, format string, args ...interface{}) error {
	return &InvalidParameterError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// DimensionMismatchError means observation/covariate/coordinate sizes
// disagree. Fatal at setup.
type DimensionMismatchError struct {
	What string
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch for %s: want %d, got %d", e.What, e.Want, e.Got)
}

// DimensionMismatch creates a DimensionMismatchError.
func DimensionMismatch(what string, want int, got int) error {
	return &DimensionMismatchError{What: what, Want: want, Got: got}
}

// IncompatibleChainError means recovery or diagnostics were invoked against
// a chain that does not match the supplied observation/prediction metadata.
// Fatal to that call only.
type IncompatibleChainError struct {
	Reason string
}

func (e *IncompatibleChainError) Error() string {
	return fmt.Sprintf("incompatible chain: %s", e.Reason)
}

// IncompatibleChain creates an IncompatibleChainError.
func IncompatibleChain(format string, args ...interface{}) error {
	return &IncompatibleChainError{Reason: fmt.Sprintf(format, args...)}
}
