package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/dynvar/internal/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Ensemble repeats a twin experiment with consecutive seeds, so each member
// draws its own background and observation noise.
type Ensemble struct {
	cfg       *config.Config
	reg       *Registry
	logger    *zap.Logger
	members   int
	workers   int
	seedStart uint64
}

func NewEnsemble(cfg *config.Config, reg *Registry, logger *zap.Logger, members, workers int) (*Ensemble, error) {
	if members <= 0 {
		return nil, fmt.Errorf("ensemble needs at least one member, got %d", members)
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{cfg: cfg, reg: reg, logger: logger, members: members, workers: workers, seedStart: cfg.Seed}, nil
}

// Summary holds per-metric mean and standard deviation over the members.
type Summary struct {
	Outcomes []*Outcome
	Mean     map[string]float64
	StdDev   map[string]float64
}

// Metrics returns the summarised metric names in sorted order.
func (s *Summary) Metrics() []string {
	names := make([]string, 0, len(s.Mean))
	for k := range s.Mean {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Run executes every member. The first failure cancels the rest.
func (e *Ensemble) Run(ctx context.Context) (*Summary, error) {
	outcomes := make([]*Outcome, e.members)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < e.members; i++ {
		g.Go(func() error {
			cfg := e.cfg.Clone()
			cfg.Seed = e.seedStart + uint64(i)

			exp, err := New(cfg, e.reg, e.logger.With(zap.Int("member", i)))
			if err != nil {
				return err
			}
			out, err := exp.Assimilate(gctx, nil)
			if err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Outcomes: outcomes, Mean: map[string]float64{}, StdDev: map[string]float64{}}
	values := map[string][]float64{}
	for _, out := range outcomes {
		for k, v := range out.Metrics {
			values[k] = append(values[k], v)
		}
	}
	for k, vs := range values {
		mean, std := stat.MeanStdDev(vs, nil)
		if len(vs) < 2 {
			std = 0
		}
		sum.Mean[k] = mean
		sum.StdDev[k] = std
	}

	e.logger.Info("ensemble finished",
		zap.Int("members", e.members),
		zap.Float64("rmse_analysis_mean", sum.Mean["rmse_analysis"]),
	)
	return sum, nil
}
