package integrators

import "github.com/san-kum/contactline/internal/ode"

// Euler is the explicit first-order method. It is only useful as a
// baseline in integrator comparisons.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys ode.System, y ode.State, x, dx float64) (ode.State, error) {
	d, err := sys.Derive(y, x)
	if err != nil {
		return nil, err
	}
	result := make(ode.State, len(y))
	for i := range y {
		result[i] = y[i] + dx*d[i]
	}
	return result, nil
}
