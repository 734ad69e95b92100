package bvp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/integrators"
	"github.com/san-kum/contactline/internal/ode"
	"github.com/san-kum/contactline/internal/optim"
)

type Options struct {
	Method      Method
	Integrator  string
	XMax        float64
	Tol         float64
	MaxIter     int
	StepTol     float64
	InitialStep float64
	MaxSteps    int
	Bracket     optim.Bracket
	Nodes       int
	MaxNodes    int

	CheckTruncation bool
	TruncTol        float64
	AutoExtend      bool
	MaxXMax         float64
}

func DefaultOptions() Options {
	return Options{
		Method:          MethodShooting,
		Integrator:      "rk45",
		XMax:            50,
		Tol:             1e-6,
		MaxIter:         100,
		StepTol:         1e-9,
		InitialStep:     1e-8,
		MaxSteps:        200000,
		Bracket:         optim.Bracket{Low: 0, High: 1},
		Nodes:           300,
		MaxNodes:        5000,
		CheckTruncation: true,
		TruncTol:        2e-3,
		AutoExtend:      false,
		MaxXMax:         5000,
	}
}

func (o Options) Validate() error {
	switch {
	case !(o.XMax > 0):
		return fmt.Errorf("x_max must be positive, got %g", o.XMax)
	case !(o.Tol > 0):
		return fmt.Errorf("tol must be positive, got %g", o.Tol)
	case o.MaxIter < 1:
		return fmt.Errorf("max_iter must be at least 1, got %d", o.MaxIter)
	case !o.Bracket.Valid():
		return fmt.Errorf("bracket must satisfy low < high, got [%g, %g]", o.Bracket.Low, o.Bracket.High)
	case o.Method == MethodCollocation && o.MaxNodes < o.Nodes:
		return fmt.Errorf("max_nodes %d below nodes %d", o.MaxNodes, o.Nodes)
	case o.AutoExtend && o.MaxXMax < o.XMax:
		return fmt.Errorf("max_x_max %g below x_max %g", o.MaxXMax, o.XMax)
	}
	if _, err := ParseMethod(string(o.Method)); err != nil {
		return err
	}
	return nil
}

// Solver runs the selected driver and validates the truncation.
type Solver struct {
	prob *contactline.Problem
	opts Options
	log  zerolog.Logger
}

func NewSolver(prob *contactline.Problem, opts Options, log zerolog.Logger) *Solver {
	return &Solver{prob: prob, opts: opts, log: log}
}

func (s *Solver) Options() Options { return s.opts }

// Shooter builds the shooting driver for [0, xmax] with a fresh integrator.
func (s *Solver) Shooter(xmax float64) (*Shooter, error) {
	integ, err := integrators.New(s.opts.Integrator)
	if err != nil {
		return nil, err
	}
	cfg := ode.DefaultConfig(xmax)
	cfg.Tolerance = s.opts.StepTol
	cfg.Dt = s.opts.InitialStep
	cfg.MaxSteps = s.opts.MaxSteps
	return &Shooter{
		Problem:     s.prob,
		Integrator:  integ,
		XMax:        xmax,
		Tol:         s.opts.Tol,
		MaxIter:     s.opts.MaxIter,
		Bracket:     s.opts.Bracket,
		Propagation: cfg,
		Log:         s.log,
	}, nil
}

// SolveAt runs a single solve on [0, xmax] without the truncation check.
func (s *Solver) SolveAt(ctx context.Context, xmax float64) (*Solution, error) {
	var (
		sol *Solution
		err error
	)
	switch s.opts.Method {
	case MethodCollocation:
		c := &Collocation{
			Problem:  s.prob,
			XMax:     xmax,
			Tol:      s.opts.Tol,
			MaxIter:  s.opts.MaxIter,
			Nodes:    s.opts.Nodes,
			MaxNodes: s.opts.MaxNodes,
			Log:      s.log,
		}
		sol, err = c.Solve(ctx)
	default:
		var sh *Shooter
		sh, err = s.Shooter(xmax)
		if err != nil {
			return nil, err
		}
		sol, err = sh.Solve(ctx)
	}
	if err != nil {
		return nil, s.wrap(err, xmax)
	}

	s.log.Info().
		Str("method", string(sol.Method())).
		Float64("x_max", xmax).
		Float64("shoot", sol.Shoot()).
		Float64("residual", sol.Residual()).
		Int("points", sol.Len()).
		Msg("solve accepted")
	return sol, nil
}

// Solve solves on the configured domain and, when enabled, compares with a
// solve on the doubled domain. With AutoExtend the domain keeps doubling
// until the comparison passes or MaxXMax would be exceeded.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if err := s.prob.Validate(); err != nil {
		return nil, err
	}
	if s.opts.Method == MethodCollocation && !(s.opts.XMax > s.prob.Guard.Floor) {
		return nil, fmt.Errorf("x_max %g must exceed the mesh floor %g for collocation", s.opts.XMax, s.prob.Guard.Floor)
	}

	x := s.opts.XMax
	sol, err := s.SolveAt(ctx, x)
	if err != nil {
		return nil, err
	}
	if !s.opts.CheckTruncation {
		return sol, nil
	}

	extensions := 0
	for {
		ext, err := s.SolveAt(ctx, 2*x)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.log.Warn().Err(err).Float64("x_max", 2*x).Msg("extended solve failed, truncation unverified")
			sol.warnings = append(sol.warnings, &SolveError{
				Kind:     KindTruncationInsufficient,
				Method:   sol.Method(),
				Constant: sol.Constant(),
				XMax:     x,
				Shoot:    sol.Shoot(),
				Err:      fmt.Errorf("extended solve on %g failed: %w", 2*x, err),
			})
			break
		}

		report, err := CompareTruncation(sol, ext, s.opts.TruncTol)
		if err != nil {
			return nil, s.wrap(err, x)
		}
		sol.truncation = report
		s.log.Debug().Str("report", report.String()).Msg("truncation check")

		if report.Adequate {
			break
		}
		if !s.opts.AutoExtend || 2*x > s.opts.MaxXMax {
			w := truncationWarning(sol, report)
			s.log.Warn().Err(w).Msg("truncation insufficient")
			sol.warnings = append(sol.warnings, w)
			break
		}

		extensions++
		s.log.Info().Float64("from", x).Float64("to", 2*x).Msg("extending domain")
		x *= 2
		sol = ext
	}
	sol.metrics["extensions"] = float64(extensions)
	return sol, nil
}

func (s *Solver) wrap(err error, xmax float64) error {
	var serr *SolveError
	if errors.As(err, &serr) {
		return err
	}
	out := &SolveError{
		Kind:         Classify(err),
		Method:       s.opts.Method,
		Constant:     s.prob.Constant,
		XMax:         xmax,
		Shoot:        math.NaN(),
		LastResidual: math.NaN(),
		Err:          err,
	}

	var sf *shootingFailure
	var cf *collocationFailure
	switch {
	case errors.As(err, &sf) && sf.res != nil:
		out.Shoot = sf.res.Root
		out.LastResidual = sf.res.Residual
		out.Iterations = sf.res.Iterations
	case errors.As(err, &cf):
		out.Shoot = cf.shoot
		out.LastResidual = cf.residual
		out.Iterations = cf.iters
	}
	return out
}
