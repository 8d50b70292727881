package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/dynvar/internal/dynamo"
)

func BenchmarkEulerStep(b *testing.B) {
	e := newLorenzEuler(b, 0.01, 1)
	x := dynamo.State{1.0, 1.0, 1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = e.Step(x)
	}
}

func BenchmarkEulerForward(b *testing.B) {
	e := newLorenzEuler(b, 0.01, 1000)
	ctx := context.Background()
	x0 := dynamo.State{1.0, 1.0, 1.0}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Forward(ctx, x0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEulerAdjoint(b *testing.B) {
	e := newLorenzEuler(b, 0.01, 1000)
	ctx := context.Background()
	traj, err := e.Forward(ctx, dynamo.State{1.0, 1.0, 1.0})
	if err != nil {
		b.Fatal(err)
	}
	forcing := dynamo.NewTrajectory(3, 1000)
	copy(forcing.Final(), dynamo.State{1, 0, 0})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Adjoint(ctx, traj, forcing); err != nil {
			b.Fatal(err)
		}
	}
}
