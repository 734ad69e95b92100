package ode_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/contactline/internal/integrators"
	"github.com/san-kum/contactline/internal/ode"
)

type oscillator struct{}

func (oscillator) StateDim() int { return 2 }
func (oscillator) Derive(y ode.State, x float64) (ode.State, error) {
	return ode.State{y[1], -y[0]}, nil
}

var errPole = errors.New("pole")

type failingSystem struct{ at float64 }

func (failingSystem) StateDim() int { return 1 }
func (f failingSystem) Derive(y ode.State, x float64) (ode.State, error) {
	if x >= f.at {
		return nil, errPole
	}
	return ode.State{1}, nil
}

type stopAt struct{ x float64 }

func (s stopAt) OnStep(y ode.State, x float64) error {
	if x >= s.x {
		return errPole
	}
	return nil
}

func TestPropagator_LandsOnEnd(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK45())
	cfg := ode.DefaultConfig(math.Pi)
	cfg.Dt = 1e-3

	traj, err := prop.Run(context.Background(), ode.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := traj.Times[len(traj.Times)-1]; got != math.Pi {
		t.Errorf("last abscissa = %v, want %v", got, math.Pi)
	}
	final := traj.Final()
	if math.Abs(final[0]+1) > 1e-6 || math.Abs(final[1]) > 1e-6 {
		t.Errorf("final state = %v, want [-1 0]", final)
	}
	for i := 1; i < len(traj.Times); i++ {
		if traj.Times[i] <= traj.Times[i-1] {
			t.Fatalf("abscissae not increasing at %d", i)
		}
	}
}

func TestPropagator_FixedStep(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK4())
	cfg := ode.DefaultConfig(1)
	cfg.Adaptive = false
	cfg.Dt = 0.01
	cfg.MaxDt = 0

	traj, err := prop.Run(context.Background(), ode.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if traj.Steps < 99 || traj.Steps > 101 {
		t.Errorf("Steps = %d, want ~100", traj.Steps)
	}
	if math.Abs(traj.Final()[0]-math.Cos(1)) > 1e-8 {
		t.Errorf("x(1) = %v, want %v", traj.Final()[0], math.Cos(1))
	}
}

func TestPropagator_StepDoublingFallback(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK4())
	cfg := ode.DefaultConfig(1)
	cfg.Dt = 0.1
	cfg.Tolerance = 1e-10

	traj, err := prop.Run(context.Background(), ode.State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(traj.Final()[0]-math.Cos(1)) > 1e-8 {
		t.Errorf("x(1) = %v, want %v", traj.Final()[0], math.Cos(1))
	}
}

func TestPropagator_SystemErrorIsWrapped(t *testing.T) {
	prop := ode.New(failingSystem{at: 0.5}, integrators.NewRK4())
	cfg := ode.DefaultConfig(1)
	cfg.Adaptive = false
	cfg.Dt = 0.1

	traj, err := prop.Run(context.Background(), ode.State{0}, cfg)
	if !errors.Is(err, errPole) {
		t.Fatalf("expected wrapped pole error, got %v", err)
	}

	var ierr *ode.IntegrationError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *IntegrationError, got %T", err)
	}
	if ierr.Time >= 0.5 {
		t.Errorf("failure reported at x=%v, want < 0.5", ierr.Time)
	}
	if traj == nil || len(traj.States) == 0 {
		t.Error("partial trajectory should be returned")
	}
}

func TestPropagator_ObserverStops(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK4())
	prop.AddObserver(stopAt{x: 0.3})
	cfg := ode.DefaultConfig(1)
	cfg.Adaptive = false
	cfg.Dt = 0.1

	_, err := prop.Run(context.Background(), ode.State{1, 0}, cfg)
	if !errors.Is(err, errPole) {
		t.Fatalf("expected observer error, got %v", err)
	}
}

func TestPropagator_MaxSteps(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK4())
	cfg := ode.DefaultConfig(10)
	cfg.Adaptive = false
	cfg.Dt = 0.01
	cfg.MaxSteps = 5

	_, err := prop.Run(context.Background(), ode.State{1, 0}, cfg)
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
}

func TestPropagator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prop := ode.New(oscillator{}, integrators.NewRK45())
	_, err := prop.Run(ctx, ode.State{1, 0}, ode.DefaultConfig(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPropagator_RejectsBadInput(t *testing.T) {
	prop := ode.New(oscillator{}, integrators.NewRK45())

	if _, err := prop.Run(context.Background(), ode.State{1}, ode.DefaultConfig(1)); !errors.Is(err, ode.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	cfg := ode.DefaultConfig(1)
	cfg.End = -1
	if _, err := prop.Run(context.Background(), ode.State{1, 0}, cfg); err == nil {
		t.Error("expected error for empty span")
	}
}
