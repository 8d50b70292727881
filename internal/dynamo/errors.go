package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for forward and adjoint integrations.
var (
	// ErrDimension indicates a state, trajectory or forcing whose shape disagrees
	// with the integrator configuration.
	ErrDimension = errors.New("dynamo: dimension mismatch")

	// ErrConfig indicates invalid integration constants.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrDivergence indicates a forward step produced a non-finite component.
	ErrDivergence = errors.New("dynamo: numerical divergence (NaN or Inf detected)")

	// ErrUnusedForcing indicates forcing at step 0, which the adjoint pass never consumes.
	ErrUnusedForcing = errors.New("dynamo: forcing at initial step is not consumed")
)

// StepError wraps an error with integration context.
type StepError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// DimensionError reports a length mismatch for the named quantity.
func DimensionError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, want %d", ErrDimension, what, got, want)
}
