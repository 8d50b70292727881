package integrators

import (
	"context"
	"fmt"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// Euler integrates a linearizable vector field with explicit Euler steps and
// provides the matching tangent-linear and adjoint passes.
type Euler struct {
	cfg    dynamo.Config
	field  dynamo.Linearizable
	strict bool
}

type Option func(*Euler)

// WithStrictForcing makes Adjoint reject forcing with a non-zero initial column.
func WithStrictForcing() Option {
	return func(e *Euler) { e.strict = true }
}

func NewEuler(cfg dynamo.Config, field dynamo.Linearizable, opts ...Option) (*Euler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.XLen != field.StateDim() {
		return nil, fmt.Errorf("%w: x_len %d does not match field dimension %d",
			dynamo.ErrConfig, cfg.XLen, field.StateDim())
	}
	e := &Euler{cfg: cfg, field: field}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Euler) Config() dynamo.Config { return e.cfg }

// Step advances x by one explicit Euler step.
func (e *Euler) Step(x dynamo.State) (dynamo.State, error) {
	if len(x) != e.cfg.XLen {
		return nil, dynamo.DimensionError("state", len(x), e.cfg.XLen)
	}
	dx := make(dynamo.State, len(x))
	e.field.DeriveInto(dx, x)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + e.cfg.Dt*dx[i]
	}
	return result, nil
}

// Forward integrates x0 over NStep steps and returns the full trajectory.
func (e *Euler) Forward(ctx context.Context, x0 dynamo.State) (*dynamo.Trajectory, error) {
	if len(x0) != e.cfg.XLen {
		return nil, dynamo.DimensionError("initial state", len(x0), e.cfg.XLen)
	}

	n, dt := e.cfg.XLen, e.cfg.Dt
	traj := dynamo.NewTrajectory(n, e.cfg.NStep)
	copy(traj.At(0), x0)
	if !traj.At(0).IsValid() {
		return nil, &dynamo.StepError{Step: 0, State: x0.Clone(), Wrapped: dynamo.ErrDivergence}
	}

	d := make(dynamo.State, n)
	for k := 0; k < e.cfg.NStep; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		x, next := traj.At(k), traj.At(k+1)
		e.field.DeriveInto(d, x)
		for i := range x {
			next[i] = x[i] + dt*d[i]
		}

		if !next.IsValid() {
			return nil, &dynamo.StepError{
				Step:    k + 1,
				Time:    float64(k+1) * dt,
				State:   next.Clone(),
				Wrapped: dynamo.ErrDivergence,
			}
		}
	}

	return traj, nil
}

// TangentLinear propagates dx0 along traj:
// dx[k+1] = dx[k] + dt·J(traj[k])·dx[k].
func (e *Euler) TangentLinear(ctx context.Context, traj *dynamo.Trajectory, dx0 dynamo.State) (*dynamo.Trajectory, error) {
	if err := traj.Shape("trajectory", e.cfg.XLen, e.cfg.NStep); err != nil {
		return nil, err
	}
	if len(dx0) != e.cfg.XLen {
		return nil, dynamo.DimensionError("perturbation", len(dx0), e.cfg.XLen)
	}

	n, dt := e.cfg.XLen, e.cfg.Dt
	tl := dynamo.NewTrajectory(n, e.cfg.NStep)
	copy(tl.At(0), dx0)

	jdx := make(dynamo.State, n)
	for k := 0; k < e.cfg.NStep; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dx, next := tl.At(k), tl.At(k+1)
		e.field.TangentInto(jdx, traj.At(k), dx)
		for i := range dx {
			next[i] = dx[i] + dt*jdx[i]
		}
	}

	return tl, nil
}

// Adjoint back-propagates forcing through traj and returns the adjoint of the
// initial state. Column 0 of forcing is not consumed.
func (e *Euler) Adjoint(ctx context.Context, traj, forcing *dynamo.Trajectory) (dynamo.State, error) {
	if err := traj.Shape("trajectory", e.cfg.XLen, e.cfg.NStep); err != nil {
		return nil, err
	}
	if err := forcing.Shape("forcing", e.cfg.XLen, e.cfg.NStep); err != nil {
		return nil, err
	}
	if e.strict {
		for _, v := range forcing.At(0) {
			if v != 0 {
				return nil, dynamo.ErrUnusedForcing
			}
		}
	}

	n, dt := e.cfg.XLen, e.cfg.Dt
	adj := make(dynamo.State, n)
	dAdj := make(dynamo.State, n)
	for k := e.cfg.NStep; k >= 1; k-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g := forcing.At(k)
		for i := range adj {
			adj[i] += g[i]
			dAdj[i] = dt * adj[i]
		}
		// step k-1 -> k was evaluated at traj[k-1]
		e.field.AdjointInto(adj, traj.At(k-1), adj, dAdj)
	}

	return adj, nil
}
