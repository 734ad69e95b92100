package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/cache"
	"github.com/san-kum/contactline/internal/config"
	"github.com/san-kum/contactline/internal/storage"
)

// Experiment is one solve described by a configuration. Every Run builds a
// fresh problem and integrator, so experiments can run concurrently.
type Experiment struct {
	cfg *config.Config
	log zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) *Experiment {
	return &Experiment{cfg: cfg.Clone(), log: log}
}

func (e *Experiment) Config() *config.Config { return e.cfg.Clone() }

func (e *Experiment) Run(ctx context.Context) (*bvp.Solution, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	solver := bvp.NewSolver(e.cfg.Problem(), e.cfg.SolverOptions(), e.log)
	return solver.Solve(ctx)
}

// Info returns the settings persisted alongside a solution.
func (e *Experiment) Info() storage.RunInfo {
	return storage.RunInfo{
		Integrator: e.cfg.Integrator,
		Tol:        e.cfg.Tol,
		Guard:      e.cfg.Problem().Guard,
	}
}

// key lists the parameters that determine a solve. Output-only settings
// such as samples, data_dir and logging are left out.
type key struct {
	Constant        float64 `json:"ode_constant"`
	XMax            float64 `json:"x_max"`
	Tol             float64 `json:"tol"`
	MaxIter         int     `json:"max_iter"`
	Method          string  `json:"method"`
	Integrator      string  `json:"integrator,omitempty"`
	StepTol         float64 `json:"step_tol,omitempty"`
	InitialStep     float64 `json:"initial_step,omitempty"`
	MaxSteps        int     `json:"max_steps,omitempty"`
	Guard           bool    `json:"guard"`
	Floor           float64 `json:"floor"`
	BracketLow      float64 `json:"bracket_low,omitempty"`
	BracketHigh     float64 `json:"bracket_high,omitempty"`
	Nodes           int     `json:"nodes,omitempty"`
	MaxNodes        int     `json:"max_nodes,omitempty"`
	TruncTol        float64 `json:"trunc_tol"`
	CheckTruncation bool    `json:"check_truncation"`
	AutoExtend      bool    `json:"auto_extend"`
	MaxXMax         float64 `json:"max_x_max,omitempty"`
}

// Key identifies the experiment in the solve cache.
func (e *Experiment) Key() (string, error) {
	c := e.cfg
	k := key{
		Constant:        c.Constant,
		XMax:            c.XMax,
		Tol:             c.Tol,
		MaxIter:         c.MaxIter,
		Method:          c.Method,
		Guard:           c.Guard,
		Floor:           c.Floor,
		TruncTol:        c.TruncTol,
		CheckTruncation: c.CheckTruncation,
		AutoExtend:      c.AutoExtend,
	}
	// driver-specific settings only matter to their driver
	switch bvp.Method(c.Method) {
	case bvp.MethodShooting:
		k.Integrator = c.Integrator
		k.StepTol = c.StepTol
		k.InitialStep = c.InitialStep
		k.MaxSteps = c.MaxSteps
		k.BracketLow = c.BracketLow
		k.BracketHigh = c.BracketHigh
	case bvp.MethodCollocation:
		k.Nodes = c.Nodes
		k.MaxNodes = c.MaxNodes
	}
	if c.AutoExtend {
		k.MaxXMax = c.MaxXMax
	}
	return cache.Key(k)
}

// Cached is a Run that consults and fills c. The boolean reports a hit.
func (e *Experiment) Cached(ctx context.Context, c *cache.Cache) (*bvp.Solution, *storage.RunMetadata, bool, error) {
	k, err := e.Key()
	if err != nil {
		return nil, nil, false, err
	}

	entry, ok, err := c.Get(ctx, k)
	if err != nil {
		e.log.Warn().Err(err).Msg("cache lookup failed")
	}
	if ok {
		sol, err := entry.Solution()
		if err == nil {
			e.log.Debug().Str("key", k[:12]).Msg("cache hit")
			return sol, &entry.Meta, true, nil
		}
		e.log.Warn().Err(err).Msg("discarding unreadable cache entry")
	}

	sol, err := e.Run(ctx)
	if err != nil {
		return nil, nil, false, err
	}
	meta := storage.NewMetadata(k[:12], sol, e.Info())
	if err := c.Put(ctx, k, meta, sol.Points()); err != nil {
		e.log.Warn().Err(err).Msg("cache store failed")
	}
	return sol, &meta, false, nil
}
