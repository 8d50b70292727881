package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dynvar/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func TestLorenzDerive(t *testing.T) {
	lz := NewLorenz()

	tests := []struct {
		name string
		x    dynamo.State
		want dynamo.State
	}{
		{"origin", dynamo.State{0, 0, 0}, dynamo.State{0, 0, 0}},
		{"ones", dynamo.State{1, 1, 1}, dynamo.State{0, 26, 1 - 8.0/3.0}},
		{"axis", dynamo.State{1, 0, 0}, dynamo.State{-10, 28, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lz.Derive(tt.x)
			if err != nil {
				t.Fatalf("derive failed: %v", err)
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("F[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLorenzDeriveDimension(t *testing.T) {
	lz := NewLorenz()
	for _, x := range []dynamo.State{{}, {1, 2}, {1, 2, 3, 4}} {
		if _, err := lz.Derive(x); !errors.Is(err, dynamo.ErrDimension) {
			t.Errorf("Derive(%v) error = %v, want ErrDimension", x, err)
		}
	}
}

func TestLorenzDeriveDoesNotMutateInput(t *testing.T) {
	lz := NewLorenz()
	x := dynamo.State{1.5, -2.0, 20.0}
	before := x.Clone()
	if _, err := lz.Derive(x); err != nil {
		t.Fatal(err)
	}
	for i := range x {
		if x[i] != before[i] {
			t.Fatalf("input mutated: got %v, want %v", x, before)
		}
	}
}

func TestLorenzTangentMatchesJacobian(t *testing.T) {
	lz := NewLorenz()
	x := dynamo.State{-3.1, 4.7, 22.5}
	dx := dynamo.State{0.3, -1.2, 0.8}

	got := make(dynamo.State, 3)
	lz.TangentInto(got, x, dx)

	var want mat.VecDense
	want.MulVec(lz.Jacobian(x), mat.NewVecDense(3, dx))
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want.AtVec(i)) > 1e-12 {
			t.Errorf("J·dx[%d] = %v, want %v", i, got[i], want.AtVec(i))
		}
	}
}

func TestLorenzAdjointIsTranspose(t *testing.T) {
	lz := NewLorenz()
	x := dynamo.State{2.0, -7.5, 31.0}
	dx := dynamo.State{0.4, 1.1, -0.6}
	y := dynamo.State{-0.9, 0.2, 1.7}

	jdx := make(dynamo.State, 3)
	lz.TangentInto(jdx, x, dx)

	jty, err := lz.Adjoint(x, dynamo.State{0, 0, 0}, y)
	if err != nil {
		t.Fatal(err)
	}

	lhs, rhs := jdx.Dot(y), dx.Dot(jty)
	if math.Abs(lhs-rhs) > 1e-12*math.Max(1, math.Abs(lhs)) {
		t.Errorf("<J dx, y> = %v, <dx, Jt y> = %v", lhs, rhs)
	}
}

func TestLorenzAdjointAccumulates(t *testing.T) {
	lz := NewLorenz()
	x := dynamo.State{1, 2, 3}
	in := dynamo.State{5, -6, 7}

	got, err := lz.Adjoint(x, in, dynamo.State{0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("zero derivative adjoint changed component %d: got %v, want %v", i, got[i], in[i])
		}
	}

	// dst aliasing adjIn
	alias := in.Clone()
	d := dynamo.State{0.1, 0.2, 0.3}
	want, _ := lz.Adjoint(x, in, d)
	lz.AdjointInto(alias, x, alias, d)
	for i := range want {
		if alias[i] != want[i] {
			t.Errorf("aliased AdjointInto[%d] = %v, want %v", i, alias[i], want[i])
		}
	}
}

func TestLorenzAdjointDimension(t *testing.T) {
	lz := NewLorenz()
	if _, err := lz.Adjoint(dynamo.State{1, 2}, dynamo.State{0, 0, 0}, dynamo.State{0, 0, 0}); !errors.Is(err, dynamo.ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestLorenzParams(t *testing.T) {
	lz := NewLorenz()
	if err := lz.SetParam("rho", 99); err != nil {
		t.Fatal(err)
	}
	if got := lz.GetParams()["rho"]; got != 99 {
		t.Errorf("rho = %v, want 99", got)
	}
	if err := lz.SetParam("gamma", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func BenchmarkLorenzDeriveInto(b *testing.B) {
	lz := NewLorenz()
	x := dynamo.State{1, 1, 1}
	d := make(dynamo.State, 3)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lz.DeriveInto(d, x)
	}
}
