package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/ode"
)

// Positivity aborts a propagation the first time the film height stops
// being positive away from the origin.
type Positivity struct {
	start      float64
	violations int
	at         float64
}

func NewPositivity(start float64) *Positivity {
	return &Positivity{start: start, at: math.NaN()}
}

func (p *Positivity) Name() string { return "positivity" }

func (p *Positivity) OnStep(y ode.State, x float64) error {
	if !y.IsValid() {
		p.record(x)
		return fmt.Errorf("%w: non-finite state at x=%g", contactline.ErrNonPhysicalState, x)
	}
	if x > p.start && y[0] <= 0 {
		p.record(x)
		return fmt.Errorf("%w: h=%g at x=%g", contactline.ErrNonPhysicalState, y[0], x)
	}
	return nil
}

func (p *Positivity) record(x float64) {
	if p.violations == 0 {
		p.at = x
	}
	p.violations++
}

// Violation returns the abscissa of the first violation, NaN if none.
func (p *Positivity) Violation() float64 { return p.at }

func (p *Positivity) Value() float64 { return float64(p.violations) }

func (p *Positivity) Reset() {
	p.violations = 0
	p.at = math.NaN()
}
