package assim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
	"go.uber.org/zap"
)

// Problem is a 4D-Var cost function over the initial state of a forward operator.
type Problem struct {
	op         dynamo.ForwardOperator
	h          *Selector
	obs        []Observation
	background dynamo.State
	sigmaB     float64
	logger     *zap.Logger

	// X[0] == x0 for operators that do not read G[0] themselves
	addInitial bool
}

type Option func(*Problem)

func WithLogger(l *zap.Logger) Option {
	return func(p *Problem) { p.logger = l }
}

func NewProblem(op dynamo.ForwardOperator, h *Selector, background dynamo.State, sigmaB float64, obs []Observation, opts ...Option) (*Problem, error) {
	cfg := op.Config()
	if len(background) != cfg.XLen {
		return nil, dynamo.DimensionError("background", len(background), cfg.XLen)
	}
	if !(sigmaB > 0) {
		return nil, fmt.Errorf("%w: background sigma must be positive, got %g", dynamo.ErrConfig, sigmaB)
	}

	consumes := false
	if c, ok := op.(interface{ ConsumesInitialForcing() bool }); ok {
		consumes = c.ConsumesInitialForcing()
	}

	for i, o := range obs {
		if o.Step < 0 || o.Step > cfg.NStep {
			return nil, fmt.Errorf("%w: observation %d at step %d outside [0, %d]", dynamo.ErrDimension, i, o.Step, cfg.NStep)
		}
		if len(o.Value) != h.ObsDim() {
			return nil, dynamo.DimensionError(fmt.Sprintf("observation %d", i), len(o.Value), h.ObsDim())
		}
		if !(o.Sigma > 0) {
			return nil, fmt.Errorf("%w: observation %d sigma must be positive, got %g", dynamo.ErrConfig, i, o.Sigma)
		}
		if o.Step == 0 && !consumes && h.Dim() != cfg.XLen {
			return nil, fmt.Errorf("%w: observation %d at step 0 cannot be mapped onto the control vector", dynamo.ErrDimension, i)
		}
	}

	p := &Problem{
		op:         op,
		h:          h,
		obs:        append([]Observation(nil), obs...),
		background: background.Clone(),
		sigmaB:     sigmaB,
		logger:     zap.NewNop(),
		addInitial: !consumes,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Problem) Dim() int                    { return p.op.Config().XLen }
func (p *Problem) Background() dynamo.State    { return p.background.Clone() }
func (p *Problem) Observations() []Observation { return p.obs }

// Evaluation is one forward/adjoint pass at X.
type Evaluation struct {
	X          dynamo.State
	Cost       float64
	CostB      float64
	CostO      float64
	Gradient   dynamo.State
	Trajectory *dynamo.Trajectory
}

// Evaluate returns the cost and its gradient at x0.
func (p *Problem) Evaluate(ctx context.Context, x0 dynamo.State) (*Evaluation, error) {
	traj, err := p.op.Forward(ctx, x0)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}

	ev := &Evaluation{X: x0.Clone(), Trajectory: traj}
	grad := make(dynamo.State, len(x0))
	vb := p.sigmaB * p.sigmaB
	for i := range x0 {
		d := x0[i] - p.background[i]
		ev.CostB += 0.5 * d * d / vb
		grad[i] = d / vb
	}

	forcing := dynamo.NewTrajectory(traj.Dim(), traj.Steps())
	for _, o := range p.obs {
		hx := p.h.Apply(traj.At(o.Step))
		vo := o.Sigma * o.Sigma
		r := make(dynamo.State, len(hx))
		for j := range hx {
			d := hx[j] - o.Value[j]
			ev.CostO += 0.5 * d * d / vo
			r[j] = d / vo
		}
		p.h.AddAdjoint(forcing.At(o.Step), r)
	}

	adj, err := p.op.Adjoint(ctx, traj, forcing)
	if err != nil {
		return nil, fmt.Errorf("adjoint: %w", err)
	}
	for i := range grad {
		grad[i] += adj[i]
	}
	if p.addInitial {
		for i, g := range forcing.At(0) {
			grad[i] += g
		}
	}

	ev.Cost = ev.CostB + ev.CostO
	ev.Gradient = grad
	p.logger.Debug("evaluated cost",
		zap.Float64("cost", ev.Cost),
		zap.Float64("cost_b", ev.CostB),
		zap.Float64("cost_o", ev.CostO),
		zap.Float64("grad_norm", grad.Norm()),
	)
	return ev, nil
}

// Objective adapts p to a context-free cost/gradient pair.
func (p *Problem) Objective(ctx context.Context) *Objective {
	return &Objective{p: p, ctx: ctx}
}

// Objective caches the last evaluation so Cost and Gradient at the same
// point share one forward/adjoint pass.
type Objective struct {
	p    *Problem
	ctx  context.Context
	last *Evaluation
}

func (o *Objective) eval(x dynamo.State) (*Evaluation, error) {
	if o.last != nil && sameState(o.last.X, x) {
		return o.last, nil
	}
	ev, err := o.p.Evaluate(o.ctx, x)
	if err != nil {
		return nil, err
	}
	o.last = ev
	return ev, nil
}

func (o *Objective) Cost(x dynamo.State) (float64, error) {
	ev, err := o.eval(x)
	if err != nil {
		return math.Inf(1), err
	}
	return ev.Cost, nil
}

func (o *Objective) Gradient(x dynamo.State) (dynamo.State, error) {
	ev, err := o.eval(x)
	if err != nil {
		return nil, err
	}
	return ev.Gradient.Clone(), nil
}

func sameState(a, b dynamo.State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
