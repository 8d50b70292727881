package integrators_test

import (
	"context"
	"math"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynvar/internal/analysis"
	"github.com/san-kum/dynvar/internal/dynamo"
	"github.com/san-kum/dynvar/internal/integrators"
	"github.com/san-kum/dynvar/internal/physics"
)

func gaussian(r *rand.Rand, n int) dynamo.State {
	s := make(dynamo.State, n)
	for i := range s {
		s[i] = r.NormFloat64()
	}
	return s
}

func gaussianForcing(r *rand.Rand, dim, nstep int) *dynamo.Trajectory {
	g := dynamo.NewTrajectory(dim, nstep)
	for k := 1; k <= nstep; k++ {
		copy(g.At(k), gaussian(r, dim))
	}
	return g
}

var _ = Describe("Euler adjoint", func() {
	var (
		ctx   context.Context
		lz    *physics.Lorenz
		euler *integrators.Euler
		traj  *dynamo.Trajectory
		rng   *rand.Rand
	)

	build := func(nstep int) {
		var err error
		euler, err = integrators.NewEuler(dynamo.Config{Dt: 0.01, NStep: nstep, XLen: 3}, lz)
		Expect(err).NotTo(HaveOccurred())
		traj, err = euler.Forward(ctx, dynamo.State{1, 1, 1})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		lz = physics.NewLorenz()
		rng = rand.New(rand.NewPCG(7, 11))
	})

	Context("over a ten step window", func() {
		BeforeEach(func() { build(10) })

		It("returns zero for zero forcing", func() {
			adj, err := euler.Adjoint(ctx, traj, dynamo.NewTrajectory(3, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect([]float64(adj)).To(Equal([]float64{0, 0, 0}))
		})

		It("equals the first row of the accumulated Jacobian product", func() {
			forcing := dynamo.NewTrajectory(3, 10)
			copy(forcing.Final(), dynamo.State{1, 0, 0})

			adj, err := euler.Adjoint(ctx, traj, forcing)
			Expect(err).NotTo(HaveOccurred())

			prod := analysis.JacobianProduct(lz, traj, 0.01)
			for j := 0; j < 3; j++ {
				want := prod.At(0, j)
				Expect(adj[j]).To(BeNumerically("~", want, 1e-12*math.Max(1, math.Abs(want))))
			}
		})

		It("is additive in the forcing", func() {
			g1 := dynamo.NewTrajectory(3, 10)
			copy(g1.Final(), dynamo.State{1, 0, 0})
			g2 := dynamo.NewTrajectory(3, 10)
			copy(g2.At(5), dynamo.State{0, 1, 0})

			residual, err := analysis.Linearity(ctx, euler, traj, g1, g2, 1, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(residual).To(BeNumerically("<", 1e-14))
		})

		It("is linear in random forcing", func() {
			g1 := gaussianForcing(rng, 3, 10)
			g2 := gaussianForcing(rng, 3, 10)

			residual, err := analysis.Linearity(ctx, euler, traj, g1, g2, 2.5, -0.75)
			Expect(err).NotTo(HaveOccurred())
			Expect(residual).To(BeNumerically("<", 1e-12))
		})
	})

	Context("over a fifty step window", func() {
		BeforeEach(func() { build(50) })

		It("passes the dot-product test with final-step forcing", func() {
			for trial := 0; trial < 10; trial++ {
				res, err := analysis.DotProduct(ctx, euler, traj, gaussian(rng, 3), gaussian(rng, 3))
				Expect(err).NotTo(HaveOccurred())
				Expect(res.RelError).To(BeNumerically("<", 1e-10), "trial %d: %+v", trial, res)
			}
		})

		It("passes the dot-product test with forcing at every step", func() {
			res, err := analysis.DotProductForcing(ctx, euler, traj, gaussian(rng, 3), gaussianForcing(rng, 3, 50))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Passed(1e-10)).To(BeTrue(), "%+v", res)
		})

		It("matches a finite difference of the forward model", func() {
			dx := gaussian(rng, 3)
			tl, err := euler.TangentLinear(ctx, traj, dx)
			Expect(err).NotTo(HaveOccurred())

			h := 1e-6
			plus, err := euler.Forward(ctx, dynamo.State{1, 1, 1}.Add(dx.Scale(h)))
			Expect(err).NotTo(HaveOccurred())
			minus, err := euler.Forward(ctx, dynamo.State{1, 1, 1}.Sub(dx.Scale(h)))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				fd := (plus.Final()[i] - minus.Final()[i]) / (2 * h)
				Expect(tl.Final()[i]).To(BeNumerically("~", fd, 1e-5*math.Max(1, math.Abs(fd))))
			}
		})
	})

	It("reports divergence for a blown-up integration", func() {
		big, err := integrators.NewEuler(dynamo.Config{Dt: 1, NStep: 10000, XLen: 3}, lz)
		Expect(err).NotTo(HaveOccurred())
		_, err = big.Forward(ctx, dynamo.State{1e8, 1e8, 1e8})
		Expect(err).To(MatchError(dynamo.ErrDivergence))
	})
})

var _ = Describe("Emissions operator", func() {
	It("passes the dot-product test including the initial step", func() {
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(3, 5))

		em, err := physics.NewEmissions(dynamo.Config{Dt: 0.1, NStep: 24, XLen: 25})
		Expect(err).NotTo(HaveOccurred())
		x0 := gaussian(rng, 25)
		traj, err := em.Forward(ctx, x0)
		Expect(err).NotTo(HaveOccurred())

		forcing := dynamo.NewTrajectory(1, 24)
		for k := 0; k <= 24; k++ {
			forcing.At(k)[0] = rng.NormFloat64()
		}
		res, err := analysis.DotProductForcing(ctx, em, traj, gaussian(rng, 25), forcing)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RelError).To(BeNumerically("<", 1e-12))
	})
})
