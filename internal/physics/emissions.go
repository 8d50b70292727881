package physics

import (
	"context"
	"fmt"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// Emissions is the linear cumulative-emissions operator
//
//	c[k] = c0 + dt·Σ_{s<k} e[s],  k = 0..nstep
//
// acting on the control vector (c0, e[0], ..., e[nstep-1]).
type Emissions struct {
	cfg dynamo.Config
}

func NewEmissions(cfg dynamo.Config) (*Emissions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.XLen != cfg.NStep+1 {
		return nil, fmt.Errorf("%w: emissions control vector needs x_len = nstep+1 = %d, got %d",
			dynamo.ErrConfig, cfg.NStep+1, cfg.XLen)
	}
	return &Emissions{cfg: cfg}, nil
}

func (e *Emissions) Config() dynamo.Config { return e.cfg }

// Forward returns the one-component concentration trajectory.
func (e *Emissions) Forward(ctx context.Context, x0 dynamo.State) (*dynamo.Trajectory, error) {
	if len(x0) != e.cfg.XLen {
		return nil, dynamo.DimensionError("control vector", len(x0), e.cfg.XLen)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tr := dynamo.NewTrajectory(1, e.cfg.NStep)
	c := x0[0]
	tr.At(0)[0] = c
	for k := 1; k <= e.cfg.NStep; k++ {
		c += e.cfg.Dt * x0[k]
		tr.At(k)[0] = c
	}
	return tr, nil
}

// Adjoint returns (Σ g, dt·reverse-cumsum(g) shifted by one step).
func (e *Emissions) Adjoint(ctx context.Context, traj, forcing *dynamo.Trajectory) (dynamo.State, error) {
	if err := traj.Shape("trajectory", 1, e.cfg.NStep); err != nil {
		return nil, err
	}
	if err := forcing.Shape("forcing", 1, e.cfg.NStep); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	adj := make(dynamo.State, e.cfg.XLen)
	acc := 0.0
	for k := e.cfg.NStep; k >= 1; k-- {
		acc += forcing.At(k)[0]
		adj[k] = e.cfg.Dt * acc
	}
	adj[0] = acc + forcing.At(0)[0]
	return adj, nil
}

// TangentLinear is Forward with c0 and e replaced by their perturbations.
func (e *Emissions) TangentLinear(ctx context.Context, _ *dynamo.Trajectory, dx0 dynamo.State) (*dynamo.Trajectory, error) {
	return e.Forward(ctx, dx0)
}

// ConsumesInitialForcing is true: c[0] = c0 depends on the control vector.
func (e *Emissions) ConsumesInitialForcing() bool { return true }
