package physics

import (
	"fmt"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Lorenz struct{ sigma, rho, beta float64 }

func NewLorenz() *Lorenz        { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) StateDim() int { return 3 }

// Derive calculates the Lorenz attractor derivatives.
func (l *Lorenz) Derive(s dynamo.State) (dynamo.State, error) {
	if len(s) != 3 {
		return nil, dynamo.DimensionError("lorenz state", len(s), 3)
	}
	d := make(dynamo.State, 3)
	l.DeriveInto(d, s)
	return d, nil
}

// DeriveInto writes F(s) into dst without allocating. dst must not alias s.
func (l *Lorenz) DeriveInto(dst, s dynamo.State) {
	dst[0] = -l.sigma*s[0] + l.sigma*s[1]
	dst[1] = s[0]*(l.rho-s[2]) - s[1]
	dst[2] = s[0]*s[1] - l.beta*s[2]
}

// TangentInto writes J(x)·dx into dst.
func (l *Lorenz) TangentInto(dst, x, dx dynamo.State) {
	dst[0] = -l.sigma*dx[0] + l.sigma*dx[1]
	dst[1] = (l.rho-x[2])*dx[0] - dx[1] - x[0]*dx[2]
	dst[2] = x[1]*dx[0] + x[0]*dx[1] - l.beta*dx[2]
}

// Adjoint accumulates J(x)ᵀ·dAdj onto adjIn and returns the result.
func (l *Lorenz) Adjoint(x, adjIn, dAdj dynamo.State) (dynamo.State, error) {
	for _, v := range []struct {
		name string
		s    dynamo.State
	}{{"linearisation point", x}, {"adjoint", adjIn}, {"derivative adjoint", dAdj}} {
		if len(v.s) != 3 {
			return nil, dynamo.DimensionError(v.name, len(v.s), 3)
		}
	}
	out := make(dynamo.State, 3)
	l.AdjointInto(out, x, adjIn, dAdj)
	return out, nil
}

// AdjointInto is the transpose of TangentInto accumulated onto adjIn.
// dst may alias adjIn but not dAdj.
func (l *Lorenz) AdjointInto(dst, x, adjIn, dAdj dynamo.State) {
	dst[0] = adjIn[0] - l.sigma*dAdj[0] + (l.rho-x[2])*dAdj[1] + x[1]*dAdj[2]
	dst[1] = adjIn[1] + l.sigma*dAdj[0] - dAdj[1] + x[0]*dAdj[2]
	dst[2] = adjIn[2] - x[0]*dAdj[1] - l.beta*dAdj[2]
}

// Jacobian returns dF/dx evaluated at x.
func (l *Lorenz) Jacobian(x dynamo.State) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		-l.sigma, l.sigma, 0,
		l.rho - x[2], -1, -x[0],
		x[1], x[0], -l.beta,
	})
}

func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.sigma, "rho": l.rho, "beta": l.beta}
}
func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "sigma", "p":
		l.sigma = v
	case "rho", "r":
		l.rho = v
	case "beta", "b":
		l.beta = v
	default:
		return fmt.Errorf("lorenz: unknown parameter %q", n)
	}
	return nil
}
