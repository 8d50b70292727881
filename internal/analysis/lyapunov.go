package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent from the
// tangent-linear model. A positive value indicates chaos.
//
// Algorithm:
// 1. Integrate one window forward from x and store the trajectory
// 2. Propagate a unit perturbation along it with the tangent-linear model
// 3. Accumulate ln|δx(T)|, renormalise δx and restart from the window's end
// 4. λ ≈ Σ ln|δx(T)| / (windows·T)
func LyapunovExponent(ctx context.Context, op tangentAdjoint, x0 dynamo.State, windows int) (float64, error) {
	if windows <= 0 {
		return 0, fmt.Errorf("%w: windows must be positive, got %d", dynamo.ErrConfig, windows)
	}

	x := x0.Clone()
	dx := make(dynamo.State, len(x0))
	for i := range dx {
		dx[i] = 1 / math.Sqrt(float64(len(dx)))
	}

	sumLog := 0.0
	for w := 0; w < windows; w++ {
		traj, err := op.Forward(ctx, x)
		if err != nil {
			return 0, fmt.Errorf("window %d: %w", w, err)
		}
		tl, err := op.TangentLinear(ctx, traj, dx)
		if err != nil {
			return 0, fmt.Errorf("window %d: %w", w, err)
		}

		grown := tl.Final()
		if len(grown) != len(x0) {
			return 0, fmt.Errorf("%w: tangent-linear state has length %d, control vector %d",
				dynamo.ErrDimension, len(grown), len(x0))
		}
		g := grown.Norm()
		if g == 0 || math.IsInf(g, 0) || math.IsNaN(g) {
			return 0, &dynamo.StepError{Step: w, State: grown.Clone(), Wrapped: dynamo.ErrDivergence}
		}
		sumLog += math.Log(g)

		dx = grown.Scale(1 / g)
		x = traj.Final().Clone()
	}

	return sumLog / (float64(windows) * op.Config().Duration()), nil
}
