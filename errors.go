package clucov

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a Config or Strategy cannot be used,
	// including when radius initialization discovers more centers than
	// Config.MaxClusters allows.
	ErrInvalidConfig = errors.New("clucov: invalid configuration")

	// ErrInvalidArgument is returned when an input value is malformed.
	ErrInvalidArgument = errors.New("clucov: invalid argument")

	// ErrSingularCovariance is returned when a covariance matrix cannot be
	// factorised even after ridge regularisation.
	ErrSingularCovariance = errors.New("clucov: singular covariance")

	// ErrNotInitialized is returned by Run and Iterate before Initialize.
	ErrNotInitialized = errors.New("clucov: engine not initialized")
)

// DimensionError reports two vectors or matrices of different dimensions
// passed to an arithmetic primitive. It unwraps to ErrInvalidArgument.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("clucov: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return ErrInvalidArgument }

func checkDim(expected, actual int) error {
	if expected != actual {
		return &DimensionError{Expected: expected, Actual: actual}
	}
	return nil
}
