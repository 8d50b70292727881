package assim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gonum.org/v1/gonum/stat/distuv"
)

// TwinConfig describes a synthetic experiment: a truth run observed with
// Gaussian noise, and a background drawn around the true initial state.
type TwinConfig struct {
	Truth           dynamo.State
	ObsEvery        int
	ObsSigma        float64
	Components      []int
	BackgroundSigma float64
	Seed            uint64
}

// Twin holds the generated experiment.
type Twin struct {
	Truth        *dynamo.Trajectory
	Background   dynamo.State
	Observations []Observation
	Selector     *Selector
}

func NewTwin(ctx context.Context, op dynamo.ForwardOperator, cfg TwinConfig) (*Twin, error) {
	if cfg.ObsEvery <= 0 {
		return nil, fmt.Errorf("%w: obs_every must be positive, got %d", dynamo.ErrConfig, cfg.ObsEvery)
	}
	if !(cfg.ObsSigma > 0) || !(cfg.BackgroundSigma > 0) {
		return nil, fmt.Errorf("%w: noise levels must be positive", dynamo.ErrConfig)
	}

	truth, err := op.Forward(ctx, cfg.Truth)
	if err != nil {
		return nil, fmt.Errorf("truth run: %w", err)
	}
	h, err := NewSelector(truth.Dim(), cfg.Components)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	obsNoise := distuv.Normal{Mu: 0, Sigma: cfg.ObsSigma, Src: src}
	bgNoise := distuv.Normal{Mu: 0, Sigma: cfg.BackgroundSigma, Src: src}

	var obs []Observation
	for k := cfg.ObsEvery; k <= truth.Steps(); k += cfg.ObsEvery {
		y := h.Apply(truth.At(k))
		for j := range y {
			y[j] += obsNoise.Rand()
		}
		obs = append(obs, Observation{Step: k, Value: y, Sigma: cfg.ObsSigma})
	}

	bg := cfg.Truth.Clone()
	for i := range bg {
		bg[i] += bgNoise.Rand()
	}

	return &Twin{Truth: truth, Background: bg, Observations: obs, Selector: h}, nil
}

// Problem builds the 4D-Var problem of the twin experiment.
func (t *Twin) Problem(op dynamo.ForwardOperator, sigmaB float64, opts ...Option) (*Problem, error) {
	return NewProblem(op, t.Selector, t.Background, sigmaB, t.Observations, opts...)
}
