package analysis

import (
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// Objective is a scalar function with an analytic gradient.
type Objective interface {
	Cost(x dynamo.State) (float64, error)
	Gradient(x dynamo.State) (dynamo.State, error)
}

// GradientCheck compares the analytic directional derivative ⟨∇J(x), d⟩ with
// the central difference (J(x+h·d) − J(x−h·d)) / 2h.
type GradientCheck struct {
	Analytic float64
	Numeric  float64
	RelError float64
}

func CostGradient(obj Objective, x, dir dynamo.State, h float64) (GradientCheck, error) {
	grad, err := obj.Gradient(x)
	if err != nil {
		return GradientCheck{}, err
	}
	if len(dir) != len(x) {
		return GradientCheck{}, dynamo.DimensionError("direction", len(dir), len(x))
	}

	plus, minus := x.Clone(), x.Clone()
	for i := range x {
		plus[i] += h * dir[i]
		minus[i] -= h * dir[i]
	}
	jp, err := obj.Cost(plus)
	if err != nil {
		return GradientCheck{}, err
	}
	jm, err := obj.Cost(minus)
	if err != nil {
		return GradientCheck{}, err
	}

	analytic := grad.Dot(dir)
	numeric := (jp - jm) / (2 * h)
	rel := 0.0
	if scale := math.Max(math.Abs(analytic), math.Abs(numeric)); scale > 0 {
		rel = math.Abs(analytic-numeric) / scale
	}
	return GradientCheck{Analytic: analytic, Numeric: numeric, RelError: rel}, nil
}
