package metrics

import (
	"math"

	"github.com/san-kum/dynvar/internal/dynamo"
)

// RMSE is the root-mean-square difference between observed states and a
// reference trajectory, taken over every component of every observed step.
type RMSE struct {
	name  string
	ref   *dynamo.Trajectory
	sumSq float64
	count int
}

func NewRMSE(name string, ref *dynamo.Trajectory) *RMSE {
	return &RMSE{name: name, ref: ref}
}

func (r *RMSE) Name() string { return r.name }

// Observe compares x with the reference state at step k. Steps outside the
// reference are ignored.
func (r *RMSE) Observe(x dynamo.State, k int) {
	if k < 0 || k > r.ref.Steps() {
		return
	}
	ref := r.ref.At(k)
	for i := range ref {
		if i >= len(x) {
			break
		}
		d := x[i] - ref[i]
		r.sumSq += d * d
		r.count++
	}
}

func (r *RMSE) Value() float64 {
	if r.count == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.count))
}

func (r *RMSE) Reset() {
	r.sumSq = 0
	r.count = 0
}

// Evaluate resets every metric and feeds it the whole trajectory.
func Evaluate(traj *dynamo.Trajectory, ms ...dynamo.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k := 0; k < traj.Len(); k++ {
			m.Observe(traj.At(k), k)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
