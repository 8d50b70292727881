// Package dynamo provides core primitives for forward and adjoint integration
// of small dynamical systems.
//
// The package defines the fundamental interfaces and types shared by the
// models, integrators and the assimilation driver:
//
//   - [State]: vector representing a system state or an adjoint state
//   - [Trajectory]: Steps()+1 states stored column-wise
//   - [Config]: integration constants {Dt, NStep, XLen}
//   - [VectorField] / [Linearizable]: dX/dt = F(X) plus its tangent and adjoint
//   - [ForwardOperator]: forward(x0) -> trajectory, adjoint(trajectory, forcing) -> gradient
//
// # Example
//
//	lz := physics.NewLorenz()
//	eu, _ := integrators.NewEuler(dynamo.Config{Dt: 0.01, NStep: 100, XLen: 3}, lz)
//	traj, _ := eu.Forward(ctx, dynamo.State{1, 1, 1})
//	grad, _ := eu.Adjoint(ctx, traj, forcing)
//
// # Thread Safety
//
// Models and integrators hold no mutable state during a pass, so one value may
// serve concurrent callers. Trajectories are not safe for concurrent mutation.
package dynamo
