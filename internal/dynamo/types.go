package dynamo

import (
	"context"
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Dot returns the Euclidean inner product. Both states must have equal length.
func (s State) Dot(other State) float64 {
	sum := 0.0
	for i := range s {
		sum += s[i] * other[i]
	}
	return sum
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// VectorField is an autonomous ODE right-hand side dx/dt = F(x).
type VectorField interface {
	StateDim() int
	Derive(x State) (State, error)
	DeriveInto(dst, x State)
}

// Linearizable fields expose the tangent-linear and adjoint of F about a point x.
type Linearizable interface {
	VectorField
	TangentInto(dst, x, dx State)
	AdjointInto(dst, x, adjIn, dAdj State)
}

// ForwardOperator maps a control vector to a trajectory and back-propagates
// trajectory sensitivities onto the control vector.
type ForwardOperator interface {
	Config() Config
	Forward(ctx context.Context, x0 State) (*Trajectory, error)
	Adjoint(ctx context.Context, traj, forcing *Trajectory) (State, error)
}

// TangentLinear is implemented by operators that can propagate a perturbation
// of the control vector along a stored reference trajectory.
type TangentLinear interface {
	TangentLinear(ctx context.Context, traj *Trajectory, dx0 State) (*Trajectory, error)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Metric interface {
	Name() string
	Observe(x State, k int)
	Value() float64
	Reset()
}

// Config holds the integration constants shared by forward and adjoint passes.
type Config struct {
	Dt    float64
	NStep int
	XLen  int
}

func DefaultConfig() Config {
	return Config{
		Dt:    0.01,
		NStep: 100,
		XLen:  3,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrConfig, c.Dt)
	}
	if c.NStep <= 0 {
		return fmt.Errorf("%w: nstep must be positive, got %d", ErrConfig, c.NStep)
	}
	if c.XLen <= 0 {
		return fmt.Errorf("%w: x_len must be positive, got %d", ErrConfig, c.XLen)
	}
	return nil
}

// Duration is the model time covered by one integration window.
func (c Config) Duration() float64 {
	return c.Dt * float64(c.NStep)
}
