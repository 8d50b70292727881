package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DotResult is the outcome of a dot-product test ⟨TL·dx0, y⟩ = ⟨dx0, AD·y⟩.
type DotResult struct {
	Forward  float64 // ⟨TL·dx0, y⟩
	Backward float64 // ⟨dx0, AD·G⟩
	RelError float64
}

func (r DotResult) Passed(tol float64) bool { return r.RelError < tol }

type tangentAdjoint interface {
	dynamo.ForwardOperator
	dynamo.TangentLinear
}

// DotProduct runs the dot-product test with y injected at the final step only.
func DotProduct(ctx context.Context, op tangentAdjoint, traj *dynamo.Trajectory, dx0, y dynamo.State) (DotResult, error) {
	if traj == nil {
		return DotResult{}, nilTrajectory("trajectory")
	}
	forcing := dynamo.NewTrajectory(traj.Dim(), traj.Steps())
	if len(y) != traj.Dim() {
		return DotResult{}, dynamo.DimensionError("y", len(y), traj.Dim())
	}
	copy(forcing.Final(), y)
	return DotProductForcing(ctx, op, traj, dx0, forcing)
}

// DotProductForcing generalises DotProduct to forcing at every step k >= 1:
// Σ_k ⟨TL_k·dx0, G[k]⟩ = ⟨dx0, AD·G⟩.
func DotProductForcing(ctx context.Context, op tangentAdjoint, traj *dynamo.Trajectory, dx0 dynamo.State, forcing *dynamo.Trajectory) (DotResult, error) {
	if traj == nil {
		return DotResult{}, nilTrajectory("trajectory")
	}
	if forcing == nil {
		return DotResult{}, nilTrajectory("forcing")
	}
	tl, err := op.TangentLinear(ctx, traj, dx0)
	if err != nil {
		return DotResult{}, fmt.Errorf("tangent linear: %w", err)
	}
	adj, err := op.Adjoint(ctx, traj, forcing)
	if err != nil {
		return DotResult{}, fmt.Errorf("adjoint: %w", err)
	}
	if err := forcing.Shape("forcing", tl.Dim(), tl.Steps()); err != nil {
		return DotResult{}, err
	}

	lhs := 0.0
	for k := 1; k < tl.Len(); k++ {
		lhs += floats.Dot(tl.At(k), forcing.At(k))
	}
	if c, ok := op.(initialForcingConsumer); ok && c.ConsumesInitialForcing() {
		lhs += floats.Dot(tl.At(0), forcing.At(0))
	}
	rhs := floats.Dot(dx0, adj)

	return DotResult{Forward: lhs, Backward: rhs, RelError: relError(lhs, rhs)}, nil
}

// initialForcingConsumer is implemented by operators whose Adjoint reads G[0].
type initialForcingConsumer interface {
	ConsumesInitialForcing() bool
}

// Linearity returns the L∞ norm of AD(a·g1 + b·g2) − a·AD(g1) − b·AD(g2).
func Linearity(ctx context.Context, op dynamo.ForwardOperator, traj, g1, g2 *dynamo.Trajectory, a, b float64) (float64, error) {
	switch {
	case traj == nil:
		return 0, nilTrajectory("trajectory")
	case g1 == nil:
		return 0, nilTrajectory("g1")
	case g2 == nil:
		return 0, nilTrajectory("g2")
	}
	g, err := g1.Combine(a, g2, b)
	if err != nil {
		return 0, err
	}
	ad, err := op.Adjoint(ctx, traj, g)
	if err != nil {
		return 0, err
	}
	ad1, err := op.Adjoint(ctx, traj, g1)
	if err != nil {
		return 0, err
	}
	ad2, err := op.Adjoint(ctx, traj, g2)
	if err != nil {
		return 0, err
	}

	diff := make([]float64, len(ad))
	for i := range ad {
		diff[i] = ad[i] - a*ad1[i] - b*ad2[i]
	}
	return floats.Norm(diff, math.Inf(1)), nil
}

func nilTrajectory(what string) error {
	return fmt.Errorf("%w: %s is nil", dynamo.ErrDimension, what)
}

// Jacobianer is a vector field with an explicit Jacobian matrix.
type Jacobianer interface {
	StateDim() int
	Jacobian(x dynamo.State) *mat.Dense
}

// JacobianProduct returns M = Π_{k=nstep-1..0} (I + dt·J(traj[k])), the
// Jacobian of the whole explicit Euler map x0 -> traj[nstep].
func JacobianProduct(field Jacobianer, traj *dynamo.Trajectory, dt float64) *mat.Dense {
	n := field.StateDim()
	prod := identity(n)
	step := mat.NewDense(n, n, nil)
	var next mat.Dense
	for k := 0; k < traj.Steps(); k++ {
		step.Scale(dt, field.Jacobian(traj.At(k)))
		for i := 0; i < n; i++ {
			step.Set(i, i, step.At(i, i)+1)
		}
		next.Mul(step, prod)
		prod.Copy(&next)
	}
	return prod
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func relError(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}
