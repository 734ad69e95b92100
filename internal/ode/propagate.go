package ode

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Propagator integrates a System across [Start, End], landing exactly on End.
type Propagator struct {
	sys        System
	integrator Integrator
	observers  []Observer
}

func New(sys System, integrator Integrator) *Propagator {
	return &Propagator{
		sys:        sys,
		integrator: integrator,
		observers:  make([]Observer, 0),
	}
}

func (p *Propagator) AddObserver(o Observer) { p.observers = append(p.observers, o) }

// Run propagates y0 and returns every accepted step. On failure the partial
// trajectory is returned together with an *IntegrationError.
func (p *Propagator) Run(ctx context.Context, y0 State, cfg Config) (*Trajectory, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(y0) != p.sys.StateDim() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(y0), p.sys.StateDim())
	}

	traj := &Trajectory{
		Times:  make([]float64, 0, 256),
		States: make([]State, 0, 256),
	}

	y := y0.Clone()
	x := cfg.Start
	dx := cfg.Dt
	if cfg.MaxDt > 0 {
		dx = math.Min(dx, cfg.MaxDt)
	}

	traj.Times = append(traj.Times, x)
	traj.States = append(traj.States, y.Clone())
	if err := p.notify(y, x); err != nil {
		return traj, &IntegrationError{Step: 0, Time: x, State: y, Wrapped: err}
	}

	eps := 1e-12 * math.Max(1, math.Abs(cfg.End))

	for cfg.End-x > eps {
		if err := ctx.Err(); err != nil {
			return traj, &IntegrationError{Step: traj.Steps, Time: x, State: y, Wrapped: err}
		}
		if cfg.MaxSteps > 0 && traj.Steps+traj.Rejected >= cfg.MaxSteps {
			return traj, &IntegrationError{Step: traj.Steps, Time: x, State: y, Wrapped: ErrMaxSteps}
		}

		last := false
		if x+dx >= cfg.End-eps {
			dx = cfg.End - x
			last = true
		}

		var next State
		var err error
		dxNext := dx

		if cfg.Adaptive {
			next, dxNext, err = p.adaptiveStep(y, x, dx, cfg)
			if errors.Is(err, ErrStepRejected) {
				traj.Rejected++
				if dxNext < cfg.MinDt {
					return traj, &IntegrationError{Step: traj.Steps, Time: x, State: y, Wrapped: ErrStepTooSmall}
				}
				dx = dxNext
				continue
			}
		} else {
			next, err = p.integrator.Step(p.sys, y, x, dx)
		}
		if err != nil {
			return traj, &IntegrationError{Step: traj.Steps, Time: x, State: y, Wrapped: err}
		}

		if cfg.ValidateState && !next.IsValid() {
			return traj, &IntegrationError{Step: traj.Steps, Time: x, State: next, Wrapped: ErrInvalidState}
		}

		if last {
			x = cfg.End
		} else {
			x += dx
		}
		y = next
		traj.Steps++
		traj.Times = append(traj.Times, x)
		traj.States = append(traj.States, y.Clone())

		if err := p.notify(y, x); err != nil {
			return traj, &IntegrationError{Step: traj.Steps, Time: x, State: y, Wrapped: err}
		}

		if cfg.Adaptive {
			dx = dxNext
			if cfg.MaxDt > 0 {
				dx = math.Min(dx, cfg.MaxDt)
			}
		}
	}

	return traj, nil
}

func (p *Propagator) notify(y State, x float64) error {
	for _, obs := range p.observers {
		if err := obs.OnStep(y, x); err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if cfg.End <= cfg.Start {
		return fmt.Errorf("end must exceed start, got [%g, %g]", cfg.Start, cfg.End)
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	return nil
}

// adaptiveStep falls back to step doubling for integrators without an
// embedded error estimate.
func (p *Propagator) adaptiveStep(y State, x, dx float64, cfg Config) (State, float64, error) {
	if adaptive, ok := p.integrator.(AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(p.sys, y, x, dx, cfg.Tolerance)
	}

	full, err := p.integrator.Step(p.sys, y, x, dx)
	if err != nil {
		return nil, dx, err
	}
	half, err := p.integrator.Step(p.sys, y, x, dx/2)
	if err != nil {
		return nil, dx, err
	}
	two, err := p.integrator.Step(p.sys, half, x+dx/2, dx/2)
	if err != nil {
		return nil, dx, err
	}

	errNorm := full.Sub(two).Norm() / (1 + two.Norm())
	if math.IsNaN(errNorm) || errNorm > cfg.Tolerance {
		return nil, dx / 2, ErrStepRejected
	}

	next := dx
	if errNorm < cfg.Tolerance/10 {
		next = dx * 2
	}
	return two, next, nil
}
