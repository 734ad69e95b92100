package ode

import "errors"

// Domain errors for propagation.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("ode: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive step dropped below the minimum.
	ErrStepTooSmall = errors.New("ode: adaptive step below minimum")

	// ErrStepRejected is returned by adaptive integrators when the local
	// error estimate exceeds the tolerance. The returned step is the retry size.
	ErrStepRejected = errors.New("ode: step rejected by error control")

	// ErrMaxSteps indicates the step budget ran out before the end of the span.
	ErrMaxSteps = errors.New("ode: step budget exhausted")

	// ErrDimensionMismatch indicates a state of the wrong length for the system.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch between state and system")
)

// IntegrationError wraps an error with propagation context.
type IntegrationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return e.Wrapped.Error()
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
