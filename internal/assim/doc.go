// Package assim implements strong-constraint 4D-Var on top of a
// [dynamo.ForwardOperator].
//
// A [Problem] couples a forward operator with a background state and a set of
// [Observation]s. Evaluating it runs one forward pass, turns the observation
// misfits into per-step adjoint forcing, and runs one adjoint pass:
//
//	J(x0)  = ½‖(x0 − xb)/σb‖² + ½ Σ ‖(H·X[k] − y)/σo‖²
//	∇J(x0) = (x0 − xb)/σb² + AD(G),  G[k] = Hᵀ(H·X[k] − y)/σo²
//
// [Minimize] drives gonum's BFGS over the problem; [Stream] runs the same
// minimisation in a goroutine and reports each major iteration on a channel.
// [NewTwin] builds a synthetic twin experiment with a known truth.
package assim
