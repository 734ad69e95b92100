package contactline

import (
	"fmt"
	"math"

	"github.com/san-kum/contactline/internal/ode"
)

const (
	DefaultConstant = 0.01
	DefaultFloor    = 1e-6
)

// BoundaryConditions holds h(0), h'(0) and the far-field curvature h''(X).
type BoundaryConditions struct {
	H0           float64
	Slope0       float64
	FarCurvature float64
}

func DefaultBoundaryConditions() BoundaryConditions {
	return BoundaryConditions{H0: 0, Slope0: 1, FarCurvature: 0}
}

func (bc BoundaryConditions) String() string {
	return fmt.Sprintf("h(0)=%g, h'(0)=%g, h''(X)=%g", bc.H0, bc.Slope0, bc.FarCurvature)
}

// Guard clamps h to Floor before every evaluation when Enabled.
type Guard struct {
	Enabled bool
	Floor   float64
}

func DefaultGuard() Guard {
	return Guard{Enabled: true, Floor: DefaultFloor}
}

// Problem is the contact-line equation with constant c. It implements
// ode.System and is safe for concurrent use.
type Problem struct {
	Constant float64
	BC       BoundaryConditions
	Guard    Guard
}

func New(constant float64) *Problem {
	return &Problem{
		Constant: constant,
		BC:       DefaultBoundaryConditions(),
		Guard:    DefaultGuard(),
	}
}

func (p *Problem) Validate() error {
	if math.IsNaN(p.Constant) || math.IsInf(p.Constant, 0) {
		return fmt.Errorf("contactline: constant must be finite, got %g", p.Constant)
	}
	if p.Guard.Floor <= 0 {
		return fmt.Errorf("contactline: guard floor must be positive, got %g", p.Guard.Floor)
	}
	return nil
}

func (p *Problem) StateDim() int { return 3 }

// InitialState returns [H0, Slope0, s] for the shooting parameter s = h''(0).
func (p *Problem) InitialState(s float64) ode.State {
	return ode.State{p.BC.H0, p.BC.Slope0, s}
}

// guarded applies the singularity policy and returns the height at which
// the right-hand side may be evaluated.
func (p *Problem) guarded(h float64) (float64, bool, error) {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, false, fmt.Errorf("%w: h=%g", ErrNonPhysicalState, h)
	}
	floor := p.Guard.Floor
	if p.Guard.Enabled {
		if h < floor {
			return floor, true, nil
		}
		return h, false, nil
	}
	if math.Abs(h) <= floor || math.Abs(h+1) <= floor {
		return 0, false, fmt.Errorf("%w: h=%g", ErrSingularEvaluation, h)
	}
	return h, false, nil
}

// ThirdDerivative returns h''' = -c/(h²+h).
func (p *Problem) ThirdDerivative(h float64) (float64, error) {
	h, _, err := p.guarded(h)
	if err != nil {
		return 0, err
	}
	return -p.Constant / (h*h + h), nil
}

// ThirdDerivativeSlope returns d h'''/dh, zero where the guard clamps.
func (p *Problem) ThirdDerivativeSlope(h float64) (float64, error) {
	h, clamped, err := p.guarded(h)
	if err != nil {
		return 0, err
	}
	if clamped {
		return 0, nil
	}
	den := h*h + h
	return p.Constant * (2*h + 1) / (den * den), nil
}

func (p *Problem) Derive(y ode.State, x float64) (ode.State, error) {
	third, err := p.ThirdDerivative(y[0])
	if err != nil {
		return nil, err
	}
	return ode.State{y[1], y[2], third}, nil
}
