package integrators

import "github.com/san-kum/contactline/internal/ode"

// RK4 keeps scratch buffers between steps and must not be shared across
// goroutines.
type RK4 struct {
	k1, k2, k3, k4 ode.State
	scratch        ode.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(ode.State, n)
		r.k2 = make(ode.State, n)
		r.k3 = make(ode.State, n)
		r.k4 = make(ode.State, n)
		r.scratch = make(ode.State, n)
	}
}

func (r *RK4) Step(sys ode.System, y ode.State, x, dx float64) (ode.State, error) {
	n := len(y)
	r.ensureScratch(n)

	k1, err := sys.Derive(y, x)
	if err != nil {
		return nil, err
	}
	copy(r.k1, k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dx*0.5*r.k1[i]
	}
	k2, err := sys.Derive(r.scratch, x+dx*0.5)
	if err != nil {
		return nil, err
	}
	copy(r.k2, k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dx*0.5*r.k2[i]
	}
	k3, err := sys.Derive(r.scratch, x+dx*0.5)
	if err != nil {
		return nil, err
	}
	copy(r.k3, k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dx*r.k3[i]
	}
	k4, err := sys.Derive(r.scratch, x+dx)
	if err != nil {
		return nil, err
	}
	copy(r.k4, k4)

	result := make(ode.State, n)
	dx6 := dx / 6.0
	for i := 0; i < n; i++ {
		result[i] = y[i] + dx6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}
