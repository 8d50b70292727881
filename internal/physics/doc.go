// Package physics provides the dynamical models used as forward operators.
//
//   - [Lorenz]: Lorenz-63 vector field with its tangent-linear and adjoint
//   - [Emissions]: linear cumulative-emissions operator with its adjoint
//
// [Lorenz] implements [dynamo.Linearizable] and is integrated in time by the
// integrators package; [Emissions] is a complete [dynamo.ForwardOperator] on
// its own. Both implement [dynamo.TangentLinear] so the analysis package can
// run dot-product tests against either.
//
// # Adjoint Consistency
//
// Lorenz.AdjointInto is the line-by-line transpose of Lorenz.TangentInto:
//
//	lz := physics.NewLorenz()
//	lz.TangentInto(jdx, x, dx)      // J(x)·dx
//	lz.AdjointInto(out, x, in, dy)  // in + J(x)ᵀ·dy
package physics
