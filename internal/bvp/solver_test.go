package bvp_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/optim"
)

func solve(prob *contactline.Problem, mutate func(*bvp.Options)) (*bvp.Solution, error) {
	opts := bvp.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	return bvp.NewSolver(prob, opts, zerolog.Nop()).Solve(context.Background())
}

func hasWarning(sol *bvp.Solution, target error) bool {
	for _, w := range sol.Warnings() {
		if errors.Is(w, target) {
			return true
		}
	}
	return false
}

var _ = Describe("Solver", func() {
	Describe("shooting on X=50", Ordered, func() {
		var sol *bvp.Solution

		BeforeAll(func() {
			var err error
			sol, err = solve(contactline.New(0.01), nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches the far-field condition", func() {
			Expect(math.Abs(sol.Residual())).To(BeNumerically("<", 1e-6))
			last := sol.At(sol.Len() - 1)
			Expect(last.X).To(Equal(50.0))
			Expect(math.Abs(last.Curvature)).To(BeNumerically("<", 1e-6))
		})

		It("reproduces the conditions at the contact line", func() {
			first := sol.At(0)
			Expect(first.X).To(Equal(0.0))
			Expect(first.H).To(BeNumerically("~", 0, 1e-12))
			Expect(first.Slope).To(BeNumerically("~", 1, 1e-12))
		})

		It("finds a small positive initial curvature", func() {
			Expect(sol.Shoot()).To(BeNumerically(">", 0.1))
			Expect(sol.Shoot()).To(BeNumerically("<", 0.2))
			Expect(sol.Method()).To(Equal(bvp.MethodShooting))
		})

		It("keeps the film physical", func() {
			for _, p := range sol.Points()[1:] {
				Expect(p.H).To(BeNumerically(">", 0))
				Expect(p.Slope).To(BeNumerically(">=", 1-1e-9))
				Expect(p.Curvature).To(BeNumerically(">=", -1e-6))
			}
		})

		It("passes the truncation check without warnings", func() {
			report := sol.Truncation()
			Expect(report).NotTo(BeNil())
			Expect(report.ExtendedXMax).To(Equal(100.0))
			Expect(report.Adequate).To(BeTrue())
			Expect(report.FarCurvatureRatio).To(BeNumerically("<", 2e-3))
			Expect(report.ShootChange).To(BeNumerically("<", 1e-2))
			Expect(sol.Warnings()).To(BeEmpty())
		})

		It("records attempt metrics", func() {
			m := sol.Metrics()
			Expect(m).To(HaveKey("evaluations"))
			Expect(m["steps"]).To(BeNumerically(">", 10))
			Expect(m["min_height"]).To(BeNumerically(">", 0))
		})

		It("interpolates between grid points", func() {
			p, err := sol.Interpolate(25)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.H).To(BeNumerically(">", 25))
			_, err = sol.Interpolate(51)
			Expect(err).To(MatchError(bvp.ErrOutOfRange))
		})
	})

	Describe("truncation", func() {
		It("flags a domain that is too short", func() {
			sol, err := solve(contactline.New(0.01), func(o *bvp.Options) { o.XMax = 1 })
			Expect(err).NotTo(HaveOccurred())
			Expect(hasWarning(sol, bvp.ErrTruncationInsufficient)).To(BeTrue())

			report := sol.Truncation()
			Expect(report.Adequate).To(BeFalse())
			Expect(report.FarCurvatureRatio).To(BeNumerically(">", 2e-3))

			var serr *bvp.SolveError
			Expect(errors.As(sol.Warnings()[0], &serr)).To(BeTrue())
			Expect(serr.Kind).To(Equal(bvp.KindTruncationInsufficient))
			Expect(serr.XMax).To(Equal(1.0))
		})

		It("extends the domain until the check passes", func() {
			sol, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.XMax = 1
				o.AutoExtend = true
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.XMax()).To(BeNumerically(">=", 4))
			Expect(sol.XMax()).To(BeNumerically("<=", 64))
			Expect(sol.Truncation().Adequate).To(BeTrue())
			Expect(sol.Warnings()).To(BeEmpty())
			Expect(sol.Metrics()["extensions"]).To(BeNumerically(">=", 2))
		})

		It("stops extending at the configured ceiling", func() {
			sol, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.XMax = 1
				o.AutoExtend = true
				o.MaxXMax = 2
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.XMax()).To(Equal(2.0))
			Expect(hasWarning(sol, bvp.ErrTruncationInsufficient)).To(BeTrue())
		})

		It("can be skipped", func() {
			sol, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.XMax = 1
				o.CheckTruncation = false
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Truncation()).To(BeNil())
			Expect(sol.Warnings()).To(BeEmpty())
		})
	})

	Describe("failures", func() {
		It("reports a singular evaluation with the guard disabled", func() {
			prob := contactline.New(0.01)
			prob.Guard.Enabled = false

			_, err := solve(prob, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, bvp.ErrSingularEvaluation)).To(BeTrue())

			var serr *bvp.SolveError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Kind).To(Equal(bvp.KindSingularEvaluation))
			Expect(serr.Constant).To(Equal(0.01))
			Expect(serr.XMax).To(Equal(50.0))
		})

		It("reports the singular evaluation for collocation too", func() {
			prob := contactline.New(0.01)
			prob.Guard.Enabled = false

			_, err := solve(prob, func(o *bvp.Options) { o.Method = bvp.MethodCollocation })
			Expect(bvp.Classify(err)).To(Equal(bvp.KindSingularEvaluation))
		})

		It("reports non-convergence when the iteration budget runs out", func() {
			_, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.MaxIter = 1
				o.Tol = 1e-12
			})
			var serr *bvp.SolveError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Kind).To(Equal(bvp.KindNonConvergence))
			Expect(errors.Is(err, bvp.ErrNonConvergence)).To(BeTrue())
			Expect(serr.Iterations).To(Equal(1))
			Expect(math.IsNaN(serr.LastResidual)).To(BeFalse())
		})

		It("reports non-convergence when the mesh budget runs out", func() {
			_, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.Method = bvp.MethodCollocation
				o.Tol = 1e-14
				o.Nodes = 50
				o.MaxNodes = 60
			})
			var serr *bvp.SolveError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Kind).To(Equal(bvp.KindNonConvergence))
			Expect(serr.LastResidual).To(BeNumerically(">", 1e-14))
		})

		It("rejects invalid options before solving", func() {
			_, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.Bracket = optim.Bracket{Low: 1, High: 0}
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects collocation on a domain inside the mesh floor", func() {
			_, err := solve(contactline.New(0.01), func(o *bvp.Options) {
				o.Method = bvp.MethodCollocation
				o.XMax = 1e-7
			})
			Expect(err).To(MatchError(ContainSubstring("mesh floor")))

			var serr *bvp.SolveError
			Expect(errors.As(err, &serr)).To(BeFalse())
		})

		It("stops on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := bvp.NewSolver(contactline.New(0.01), bvp.DefaultOptions(), zerolog.Nop()).Solve(ctx)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})
	})

	Describe("shooting attempts", func() {
		var sh *bvp.Shooter

		BeforeEach(func() {
			var err error
			sh, err = bvp.NewSolver(contactline.New(0.01), bvp.DefaultOptions(), zerolog.Nop()).Shooter(50)
			Expect(err).NotTo(HaveOccurred())
		})

		It("turns a diverged attempt into a one-sided sample below the root", func() {
			for _, s := range []float64{-1, 0, 0.05} {
				att, err := sh.Attempt(context.Background(), s)
				Expect(errors.Is(err, bvp.ErrNonPhysicalState)).To(BeTrue(), "s=%g", s)
				Expect(math.IsNaN(att.Diverged)).To(BeFalse(), "s=%g", s)

				_, err = sh.Residual(context.Background(), s)
				var se *optim.SignedError
				Expect(errors.As(err, &se)).To(BeTrue(), "s=%g", s)
				Expect(se.Sign).To(Equal(-1))
				Expect(bvp.Classify(err)).To(Equal(bvp.KindNonPhysicalState))

				sample, err := optim.Evaluate(context.Background(), sh.Residual, s)
				Expect(err).NotTo(HaveOccurred())
				Expect(sample.Sign).To(Equal(-1))
				Expect(sample.Exact).To(BeFalse())
			}
		})

		It("returns a plain residual near the root", func() {
			r, err := sh.Residual(context.Background(), 0.14)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(r)).To(BeFalse())
		})
	})

	Describe("collocation on X=50", Ordered, func() {
		var colloc, shoot *bvp.Solution

		BeforeAll(func() {
			var err error
			colloc, err = solve(contactline.New(0.01), func(o *bvp.Options) {
				o.Method = bvp.MethodCollocation
				o.CheckTruncation = false
			})
			Expect(err).NotTo(HaveOccurred())
			shoot, err = solve(contactline.New(0.01), func(o *bvp.Options) { o.CheckTruncation = false })
			Expect(err).NotTo(HaveOccurred())
		})

		It("satisfies all three boundary conditions", func() {
			first := colloc.At(0)
			Expect(first.H).To(BeNumerically("~", 0, 1e-9))
			Expect(first.Slope).To(BeNumerically("~", 1, 1e-9))
			Expect(math.Abs(colloc.Residual())).To(BeNumerically("<", 1e-9))
		})

		It("agrees with shooting", func() {
			Expect(colloc.Shoot()).To(BeNumerically("~", shoot.Shoot(), 1e-3))

			for _, x := range []float64{1, 10, 25, 50} {
				a, err := colloc.Interpolate(x)
				Expect(err).NotTo(HaveOccurred())
				b, err := shoot.Interpolate(x)
				Expect(err).NotTo(HaveOccurred())
				Expect(a.Slope).To(BeNumerically("~", b.Slope, 1e-2))
			}
		})

		It("uses a mesh graded toward the origin", func() {
			Expect(colloc.Method()).To(Equal(bvp.MethodCollocation))
			Expect(colloc.Metrics()["nodes"]).To(BeNumerically(">=", 300))
			Expect(colloc.At(1).X).To(BeNumerically("~", 1e-6, 1e-12))
		})
	})
})
