package ode

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order system dy/dx = Derive(y, x). Derive must not
// retain or modify y.
type System interface {
	Derive(y State, x float64) (State, error)
	StateDim() int
}

type Integrator interface {
	Step(sys System, y State, x, dx float64) (State, error)
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, y State, x, dx, tol float64) (State, float64, error)
}

// Observer is notified after every accepted step. A non-nil error stops
// the propagation.
type Observer interface {
	OnStep(y State, x float64) error
}

type Config struct {
	Start         float64
	End           float64
	Dt            float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	MaxSteps      int
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig(end float64) Config {
	return Config{
		Start:         0,
		End:           end,
		Dt:            1e-8,
		Tolerance:     1e-9,
		MaxDt:         math.Max(end/10, 1e-3),
		MinDt:         1e-15,
		MaxSteps:      200000,
		Adaptive:      true,
		ValidateState: true,
	}
}

// Trajectory is the ordered record of accepted steps.
type Trajectory struct {
	Times    []float64
	States   []State
	Steps    int
	Rejected int
}

// Final returns the last recorded state.
func (t *Trajectory) Final() State {
	if t == nil || len(t.States) == 0 {
		return nil
	}
	return t.States[len(t.States)-1]
}
