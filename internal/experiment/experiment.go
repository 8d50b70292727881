package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/dynvar/internal/analysis"
	"github.com/san-kum/dynvar/internal/assim"
	"github.com/san-kum/dynvar/internal/config"
	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/san-kum/dynvar/internal/metrics"
	"go.uber.org/zap"
)

type Experiment struct {
	cfg    *config.Config
	op     Operator
	logger *zap.Logger
}

func New(cfg *config.Config, reg *Registry, logger *zap.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	op, err := reg.GetOperator(cfg.Model, cfg.IntegratorConfig(), Options{
		Params:        cfg.Params,
		StrictForcing: cfg.Assim.StrictForcing,
	})
	if err != nil {
		return nil, err
	}
	return &Experiment{cfg: cfg, op: op, logger: logger.With(zap.String("model", cfg.Model))}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Operator() Operator     { return e.op }

func (e *Experiment) Forward(ctx context.Context) (*dynamo.Trajectory, error) {
	ic := e.op.Config()
	e.logger.Debug("forward run", zap.Float64("dt", ic.Dt), zap.Int("nstep", ic.NStep))
	return e.op.Forward(ctx, e.cfg.GetInitState())
}

// GradReport collects the adjoint consistency checks of one experiment.
type GradReport struct {
	DotProduct    analysis.DotResult
	DotForcing    analysis.DotResult
	Linearity     float64
	CostGradient  analysis.GradientCheck
	ZeroForcingOK bool
}

// GradCheck runs the dot-product, linearity, zero-forcing and finite-difference
// cost checks around the configured initial state.
func (e *Experiment) GradCheck(ctx context.Context) (*GradReport, error) {
	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed+1))
	x0 := dynamo.State(e.cfg.GetInitState())
	traj, err := e.op.Forward(ctx, x0)
	if err != nil {
		return nil, err
	}

	rep := &GradReport{}
	dim, nstep := traj.Dim(), traj.Steps()
	if rep.DotProduct, err = analysis.DotProduct(ctx, e.op, traj, gaussian(rng, len(x0)), gaussian(rng, dim)); err != nil {
		return nil, err
	}
	if rep.DotForcing, err = analysis.DotProductForcing(ctx, e.op, traj, gaussian(rng, len(x0)), gaussianForcing(rng, dim, nstep)); err != nil {
		return nil, err
	}
	if rep.Linearity, err = analysis.Linearity(ctx, e.op, traj, gaussianForcing(rng, dim, nstep), gaussianForcing(rng, dim, nstep), 1, 1); err != nil {
		return nil, err
	}

	zero, err := e.op.Adjoint(ctx, traj, dynamo.NewTrajectory(dim, nstep))
	if err != nil {
		return nil, err
	}
	rep.ZeroForcingOK = zero.Norm() == 0

	twin, p, err := e.Twin(ctx)
	if err != nil {
		return nil, err
	}
	if rep.CostGradient, err = analysis.CostGradient(p.Objective(ctx), twin.Background, gaussian(rng, len(x0)), 1e-6); err != nil {
		return nil, err
	}

	e.logger.Info("gradient check",
		zap.Float64("dot_rel_err", rep.DotProduct.RelError),
		zap.Float64("dot_forcing_rel_err", rep.DotForcing.RelError),
		zap.Float64("linearity", rep.Linearity),
		zap.Float64("fd_rel_err", rep.CostGradient.RelError),
	)
	return rep, nil
}

// Twin builds the synthetic twin experiment and its 4D-Var problem.
func (e *Experiment) Twin(ctx context.Context) (*assim.Twin, *assim.Problem, error) {
	a := e.cfg.Assim
	twin, err := assim.NewTwin(ctx, e.op, assim.TwinConfig{
		Truth:           e.cfg.GetInitState(),
		ObsEvery:        a.ObsEvery,
		ObsSigma:        a.ObsSigma,
		Components:      a.Components,
		BackgroundSigma: a.BackgroundSigma,
		Seed:            e.cfg.Seed,
	})
	if err != nil {
		return nil, nil, err
	}
	p, err := twin.Problem(e.op, a.BackgroundSigma, assim.WithLogger(e.logger))
	if err != nil {
		return nil, nil, err
	}
	return twin, p, nil
}

func (e *Experiment) Settings() assim.Settings {
	return assim.Settings{MaxIterations: e.cfg.Assim.MaxIterations, GradTol: e.cfg.Assim.GradTol}
}

// Outcome summarises a twin experiment.
type Outcome struct {
	Twin       *assim.Twin
	Analysis   *assim.Analysis
	Background *dynamo.Trajectory
	Forecast   *dynamo.Trajectory
	Metrics    map[string]float64
}

// Assimilate runs a twin experiment to completion.
func (e *Experiment) Assimilate(ctx context.Context, onIter func(assim.Iteration) error) (*Outcome, error) {
	twin, p, err := e.Twin(ctx)
	if err != nil {
		return nil, err
	}
	an, err := assim.Minimize(ctx, p, e.Settings(), onIter)
	if err != nil {
		return nil, err
	}
	return e.Finish(ctx, twin, an)
}

// Finish integrates the background and the analysis and scores both
// against the truth.
func (e *Experiment) Finish(ctx context.Context, twin *assim.Twin, an *assim.Analysis) (*Outcome, error) {
	bg, err := e.op.Forward(ctx, twin.Background)
	if err != nil {
		return nil, fmt.Errorf("background run: %w", err)
	}
	fc, err := e.op.Forward(ctx, an.X)
	if err != nil {
		return nil, fmt.Errorf("analysis run: %w", err)
	}

	out := &Outcome{Twin: twin, Analysis: an, Background: bg, Forecast: fc, Metrics: map[string]float64{}}
	for k, v := range metrics.Evaluate(bg, metrics.NewRMSE("rmse_background", twin.Truth)) {
		out.Metrics[k] = v
	}
	for k, v := range metrics.Evaluate(fc, metrics.NewRMSE("rmse_analysis", twin.Truth), metrics.NewStability(1e6)) {
		out.Metrics[k] = v
	}
	out.Metrics["cost"] = an.Cost
	out.Metrics["grad_norm"] = an.GradNorm
	out.Metrics["iterations"] = 0
	if n := len(an.Iterations); n > 0 {
		out.Metrics["iterations"] = float64(an.Iterations[n-1].N)
	}

	e.logger.Info("assimilation finished",
		zap.String("status", an.Status),
		zap.Float64("rmse_background", out.Metrics["rmse_background"]),
		zap.Float64("rmse_analysis", out.Metrics["rmse_analysis"]),
	)
	return out, nil
}

// Lyapunov estimates the largest Lyapunov exponent over the given number of windows.
func (e *Experiment) Lyapunov(ctx context.Context, windows int) (float64, error) {
	return analysis.LyapunovExponent(ctx, e.op, e.cfg.GetInitState(), windows)
}

func gaussian(r *rand.Rand, n int) dynamo.State {
	s := make(dynamo.State, n)
	for i := range s {
		s[i] = r.NormFloat64()
	}
	return s
}

func gaussianForcing(r *rand.Rand, dim, nstep int) *dynamo.Trajectory {
	g := dynamo.NewTrajectory(dim, nstep)
	for k := 1; k <= nstep; k++ {
		copy(g.At(k), gaussian(r, dim))
	}
	return g
}
