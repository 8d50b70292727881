package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Trajectory is an ordered sequence of Steps()+1 states of equal dimension,
// stored column-wise in one contiguous backing array.
type Trajectory struct {
	dim  int
	data []float64
}

// NewTrajectory allocates a zero trajectory with nstep+1 columns.
func NewTrajectory(dim, nstep int) *Trajectory {
	return &Trajectory{
		dim:  dim,
		data: make([]float64, dim*(nstep+1)),
	}
}

// TrajectoryFrom copies states into a new trajectory. All states must share one length.
func TrajectoryFrom(states []State) (*Trajectory, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", ErrDimension)
	}
	dim := len(states[0])
	tr := NewTrajectory(dim, len(states)-1)
	for k, s := range states {
		if len(s) != dim {
			return nil, DimensionError(fmt.Sprintf("state %d", k), len(s), dim)
		}
		copy(tr.At(k), s)
	}
	return tr, nil
}

func (t *Trajectory) Dim() int { return t.dim }

// Steps is the number of steps; the trajectory holds Steps()+1 states.
func (t *Trajectory) Steps() int {
	if t.dim == 0 {
		return -1
	}
	return len(t.data)/t.dim - 1
}

func (t *Trajectory) Len() int { return t.Steps() + 1 }

// At returns column k as a view into the backing array.
func (t *Trajectory) At(k int) State {
	return State(t.data[k*t.dim : (k+1)*t.dim : (k+1)*t.dim])
}

func (t *Trajectory) Final() State { return t.At(t.Steps()) }

func (t *Trajectory) States() []State {
	out := make([]State, t.Len())
	for k := range out {
		out[k] = t.At(k).Clone()
	}
	return out
}

// Component returns the time series of component i.
func (t *Trajectory) Component(i int) []float64 {
	out := make([]float64, t.Len())
	for k := range out {
		out[k] = t.data[k*t.dim+i]
	}
	return out
}

func (t *Trajectory) Clone() *Trajectory {
	c := &Trajectory{dim: t.dim, data: make([]float64, len(t.data))}
	copy(c.data, t.data)
	return c
}

// Shape reports an ErrDimension when t is not dim x (nstep+1).
func (t *Trajectory) Shape(what string, dim, nstep int) error {
	if t == nil {
		return fmt.Errorf("%w: %s is nil", ErrDimension, what)
	}
	if t.dim != dim || t.Steps() != nstep {
		return fmt.Errorf("%w: %s has shape (%d, %d), want (%d, %d)",
			ErrDimension, what, t.dim, t.Len(), dim, nstep+1)
	}
	return nil
}

// Combine returns a*t + b*other. Shapes must match.
func (t *Trajectory) Combine(a float64, other *Trajectory, b float64) (*Trajectory, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: trajectory is nil", ErrDimension)
	}
	if err := other.Shape("trajectory", t.dim, t.Steps()); err != nil {
		return nil, err
	}
	out := &Trajectory{dim: t.dim, data: make([]float64, len(t.data))}
	for i := range t.data {
		out.data[i] = a*t.data[i] + b*other.data[i]
	}
	return out, nil
}

// Matrix returns a dim x (nstep+1) copy with one state per column.
func (t *Trajectory) Matrix() *mat.Dense {
	m := mat.NewDense(t.dim, t.Len(), nil)
	for k := 0; k < t.Len(); k++ {
		m.SetCol(k, t.At(k))
	}
	return m
}

// IsZero reports whether every component is exactly zero.
func (t *Trajectory) IsZero() bool {
	for _, v := range t.data {
		if v != 0 {
			return false
		}
	}
	return true
}
