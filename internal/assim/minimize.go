package assim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// Settings bound a minimisation.
type Settings struct {
	MaxIterations int
	GradTol       float64
}

func DefaultSettings() Settings {
	return Settings{MaxIterations: 100, GradTol: 1e-6}
}

// Iteration is one major BFGS iteration.
type Iteration struct {
	N        int
	Cost     float64
	GradNorm float64
	Evals    int
}

// Analysis is the outcome of a minimisation. Iterations[0] is the
// background; later entries are BFGS major iterations.
type Analysis struct {
	X          dynamo.State
	Cost       float64
	GradNorm   float64
	Iterations []Iteration
	Status     string
	Evals      int
}

// Minimize runs BFGS from the background state. onIter, when non-nil, is
// called after every major iteration; returning an error stops the run.
func Minimize(ctx context.Context, p *Problem, s Settings, onIter func(Iteration) error) (*Analysis, error) {
	obj := p.Objective(ctx)

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			f, err := obj.Cost(x)
			if err != nil {
				// divergent trial points are rejected by the line search
				if errors.Is(err, dynamo.ErrDivergence) {
					return math.Inf(1)
				}
				if evalErr == nil {
					evalErr = err
				}
				return math.NaN()
			}
			return f
		},
		Grad: func(grad, x []float64) {
			g, err := obj.Gradient(x)
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				for i := range grad {
					grad[i] = math.NaN()
				}
				return
			}
			copy(grad, g)
		},
	}

	out := &Analysis{}
	rec := &recorder{ctx: ctx, onIter: func(it Iteration) error {
		out.Iterations = append(out.Iterations, it)
		p.logger.Info("4dvar iteration",
			zap.Int("iter", it.N),
			zap.Float64("cost", it.Cost),
			zap.Float64("grad_norm", it.GradNorm),
		)
		if onIter != nil {
			return onIter(it)
		}
		return nil
	}}

	// gonum reports InitIteration before evaluating anything, so the
	// starting point is recorded from the objective itself.
	f0, err := obj.Cost(p.Background())
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	g0, err := obj.Gradient(p.Background())
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	if err := rec.onIter(Iteration{N: 0, Cost: f0, GradNorm: g0.Norm(), Evals: 1}); err != nil {
		return nil, err
	}

	settings := &optimize.Settings{
		MajorIterations:   s.MaxIterations,
		GradientThreshold: s.GradTol,
		Recorder:          rec,
	}

	res, err := optimize.Minimize(problem, p.Background(), settings, &optimize.BFGS{})
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if rec.err != nil {
			return nil, rec.err
		}
		if res == nil || !stoppedEarly(res.Status, err) {
			return nil, fmt.Errorf("minimize: %w", err)
		}
		p.logger.Warn("minimisation stopped early", zap.String("status", res.Status.String()), zap.Error(err))
	}

	out.X = dynamo.State(res.X).Clone()
	out.Cost = res.F
	out.GradNorm = dynamo.State(res.Gradient).Norm()
	out.Status = res.Status.String()
	out.Evals = res.Stats.FuncEvaluations
	return out, nil
}

type recorder struct {
	ctx    context.Context
	onIter func(Iteration) error
	err    error
}

func (r *recorder) Init() error { return nil }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if op != optimize.MajorIteration {
		return nil
	}
	it := Iteration{
		N:        stats.MajorIterations,
		Cost:     loc.F,
		GradNorm: dynamo.State(loc.Gradient).Norm(),
		Evals:    stats.FuncEvaluations,
	}
	if err := r.onIter(it); err != nil {
		r.err = err
		return err
	}
	return nil
}

// stoppedEarly reports termination that still leaves a usable analysis: a
// budget was exhausted, or the line search stalled at rounding level.
func stoppedEarly(status optimize.Status, err error) bool {
	switch status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit:
		return true
	}
	return errors.Is(err, optimize.ErrLinesearcherFailure) || errors.Is(err, optimize.ErrNoProgress)
}
