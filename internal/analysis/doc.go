// Package analysis provides consistency checks and diagnostics for forward
// operators and their adjoints.
//
//   - [DotProduct]: ⟨TL·dx0, y⟩ against ⟨dx0, AD·y⟩ with y at the final step
//   - [DotProductForcing]: the same test with forcing at every step
//   - [Linearity]: linearity of the adjoint in its forcing
//   - [JacobianProduct]: the dense Jacobian of an explicit Euler window
//   - [CostGradient]: finite-difference check of an analytic gradient
//   - [LyapunovExponent]: largest Lyapunov exponent via the tangent-linear model
//
// Trajectory diagnostics: [NewPhasePortrait], [PoincareSection],
// [BifurcationDiagram] (local maxima per parameter value), and
// [PowerSpectrum] / [DominantPeriod] on a single component.
//
// # Adjoint Verification
//
// An adjoint is correct when the dot-product test holds to rounding:
//
//	res, _ := analysis.DotProduct(ctx, euler, traj, dx0, y)
//	if !res.Passed(1e-10) {
//	    // adjoint is not the transpose of the tangent-linear model
//	}
package analysis
