package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/config"
	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/san-kum/dynvar/internal/experiment"
	"go.uber.org/zap"
)

// Point is one evaluated grid node.
type Point struct {
	Params map[string]float64
	Value  float64
}

// Result is the outcome of a grid search. Points are in visiting order.
type Result struct {
	Best      map[string]float64
	BestValue float64
	Points    []Point
}

// GridSearch runs a twin experiment at every node of a parameter grid and
// keeps the node minimising one outcome metric.
//
// Parameter names are either assimilation settings (obs_sigma, obs_every,
// background_sigma, dt) or model parameters passed through to the operator.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64, logger *zap.Logger) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: need one range per parameter, got %d names and %d ranges",
			dynamo.ErrConfig, len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: empty range for %s", dynamo.ErrConfig, params[i])
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: logger}, nil
}

// Search evaluates the grid around base. Nodes whose forward run diverges
// score +Inf; any other failure aborts the search.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, metricName string) (*Result, error) {
	res := &Result{BestValue: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, reg, metricName, res); err != nil {
		return nil, err
	}
	if res.Best == nil {
		return nil, fmt.Errorf("%w: every grid node diverged", dynamo.ErrDivergence)
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	reg *experiment.Registry,
	metricName string,
	res *Result,
) error {
	if depth == len(g.paramNames) {
		val, err := g.evaluate(ctx, current, base, reg, metricName)
		if err != nil {
			return err
		}

		res.Points = append(res.Points, Point{Params: current, Value: val})
		if val < res.BestValue {
			res.BestValue = val
			res.Best = current
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, reg, metricName, res); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, reg *experiment.Registry, metricName string) (float64, error) {
	cfg := base.Clone()
	for k, v := range params {
		Apply(cfg, k, v)
	}

	exp, err := experiment.New(cfg, reg, g.logger)
	if err != nil {
		return 0, err
	}
	out, err := exp.Assimilate(ctx, nil)
	if errors.Is(err, dynamo.ErrDivergence) {
		g.logger.Warn("grid node diverged", zap.Any("params", params), zap.Error(err))
		return math.Inf(1), nil
	}
	if err != nil {
		return 0, err
	}

	val, ok := out.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("unknown metric %q", metricName)
	}
	g.logger.Debug("grid node", zap.Any("params", params), zap.Float64(metricName, val))
	return val, nil
}

// Apply sets one named knob on cfg.
func Apply(cfg *config.Config, name string, v float64) {
	switch name {
	case "obs_sigma":
		cfg.Assim.ObsSigma = v
	case "obs_every":
		cfg.Assim.ObsEvery = int(v)
	case "background_sigma":
		cfg.Assim.BackgroundSigma = v
	case "dt":
		cfg.Dt = v
	default:
		if cfg.Params == nil {
			cfg.Params = map[string]float64{}
		}
		cfg.Params[name] = v
	}
}
