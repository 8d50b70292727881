package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// BifurcationPoint holds the distinct local maxima of one component for a
// single parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// OperatorFactory builds a forward operator for one parameter value.
type OperatorFactory func(param float64) (dynamo.ForwardOperator, error)

// BifurcationDiagram integrates x0 for every parameter value, drops the
// first transient steps, and records the local maxima of one component
// (for Lorenz and component 2 this is the Lorenz map).
func BifurcationDiagram(ctx context.Context, build OperatorFactory, x0 dynamo.State, params []float64, component, transient int) ([]BifurcationPoint, error) {
	if transient < 0 {
		return nil, fmt.Errorf("%w: transient must be non-negative, got %d", dynamo.ErrConfig, transient)
	}

	results := make([]BifurcationPoint, 0, len(params))
	for _, p := range params {
		op, err := build(p)
		if err != nil {
			return nil, err
		}
		if transient >= op.Config().NStep {
			return nil, fmt.Errorf("%w: transient %d leaves nothing of %d steps", dynamo.ErrConfig, transient, op.Config().NStep)
		}
		traj, err := op.Forward(ctx, x0)
		if err != nil {
			return nil, fmt.Errorf("param %g: %w", p, err)
		}
		if err := checkComponents(traj, component); err != nil {
			return nil, err
		}

		results = append(results, BifurcationPoint{
			Param:  p,
			Values: distinct(LocalMaxima(traj.Component(component)[transient:]), 1e-3),
		})
	}
	return results, nil
}

// LocalMaxima returns the interior strict local maxima of series.
func LocalMaxima(series []float64) []float64 {
	var peaks []float64
	for i := 1; i+1 < len(series); i++ {
		if series[i] > series[i-1] && series[i] >= series[i+1] {
			peaks = append(peaks, series[i])
		}
	}
	return peaks
}

// distinct quantises values to resolution and keeps the first of each bucket.
func distinct(values []float64, resolution float64) []float64 {
	seen := make(map[int64]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		key := int64(math.Round(v / resolution))
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}

// BifurcationToASCII draws one column per parameter value.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	points := make([]Point2, 0, len(data))
	for _, p := range data {
		for _, v := range p.Values {
			points = append(points, Point2{X: p.Param, Y: v})
		}
	}
	return ScatterASCII(points, width, height)
}
