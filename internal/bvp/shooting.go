package bvp

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/metrics"
	"github.com/san-kum/contactline/internal/ode"
	"github.com/san-kum/contactline/internal/optim"
)

// Shooter matches h''(X) = FarCurvature by root finding on s = h''(0).
type Shooter struct {
	Problem    *contactline.Problem
	Integrator ode.Integrator
	XMax       float64
	Tol        float64
	MaxIter    int
	Bracket    optim.Bracket
	// Propagation holds step control; Start and End are overwritten.
	Propagation ode.Config
	Log         zerolog.Logger
}

// Attempt is one forward integration for a trial s.
type Attempt struct {
	Shoot      float64
	Residual   float64
	Trajectory *ode.Trajectory
	Metrics    map[string]float64
	// Diverged is the abscissa where h stopped being positive, NaN otherwise.
	Diverged float64
}

func (sh *Shooter) config() ode.Config {
	cfg := sh.Propagation
	cfg.Start = 0
	cfg.End = sh.XMax
	if cfg.MaxDt <= 0 {
		cfg.MaxDt = math.Max(sh.XMax/10, 1e-3)
	}
	return cfg
}

// Attempt integrates (H0, Slope0, s) to X. A non-physical trajectory returns
// the partial attempt together with the error.
func (sh *Shooter) Attempt(ctx context.Context, s float64) (*Attempt, error) {
	pos := metrics.NewPositivity(0)
	col := metrics.NewCollector(metrics.Default()...)

	prop := ode.New(sh.Problem, sh.Integrator)
	prop.AddObserver(pos)
	prop.AddObserver(col)

	traj, err := prop.Run(ctx, sh.Problem.InitialState(s), sh.config())
	att := &Attempt{
		Shoot:      s,
		Residual:   math.NaN(),
		Trajectory: traj,
		Metrics:    col.Values(),
		Diverged:   pos.Violation(),
	}
	if traj != nil {
		att.Metrics["rejected_steps"] = float64(traj.Rejected)
	}
	if err != nil {
		return att, err
	}
	att.Residual = traj.Final()[2] - sh.Problem.BC.FarCurvature
	return att, nil
}

// Residual is the root-finding objective. Diverged attempts become one-sided
// samples below the root, since h'' plunged before reaching X.
func (sh *Shooter) Residual(ctx context.Context, s float64) (float64, error) {
	att, err := sh.Attempt(ctx, s)
	if err != nil {
		if errors.Is(err, ErrNonPhysicalState) || errors.Is(err, ode.ErrInvalidState) {
			sh.Log.Debug().Float64("s", s).Float64("diverged_at", att.Diverged).Msg("shooting attempt diverged")
			return 0, optim.Signed(-1, err)
		}
		return 0, err
	}
	sh.Log.Debug().Float64("s", s).Float64("residual", att.Residual).Int("steps", att.Trajectory.Steps).Msg("shooting attempt")
	return att.Residual, nil
}

type shootingFailure struct {
	res *optim.Result
	err error
}

func (f *shootingFailure) Error() string { return f.err.Error() }
func (f *shootingFailure) Unwrap() error { return f.err }

func (sh *Shooter) Solve(ctx context.Context) (*Solution, error) {
	opts := optim.DefaultOptions()
	opts.Tol = sh.Tol
	opts.MaxIter = sh.MaxIter

	res, err := optim.Illinois(ctx, sh.Residual, sh.Bracket, opts)
	if err != nil {
		if errors.Is(err, optim.ErrNotConverged) || errors.Is(err, optim.ErrNoSignChange) {
			err = errors.Join(ErrNonConvergence, err)
		}
		return nil, &shootingFailure{res: res, err: err}
	}

	att, err := sh.Attempt(ctx, res.Root)
	if err != nil {
		return nil, &shootingFailure{res: res, err: err}
	}

	traj := att.Trajectory
	pts := make([]Point, len(traj.States))
	for i, y := range traj.States {
		pts[i] = Point{
			X:         traj.Times[i],
			H:         y[0],
			Slope:     y[1],
			Curvature: y[2],
			Third:     third(sh.Problem, y[0]),
		}
	}

	sol := newSolution(sh.Problem, MethodShooting, sh.XMax, pts)
	sol.iterations = res.Iterations
	for k, v := range att.Metrics {
		sol.metrics[k] = v
	}
	sol.metrics["evaluations"] = float64(res.Evaluations + 1)
	sol.metrics["iterations"] = float64(res.Iterations)
	return sol, nil
}
