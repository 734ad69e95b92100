package integrators

import (
	"math"

	"github.com/san-kum/contactline/internal/ode"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince 5(4) pair with local error control on a mixed
// absolute/relative scale.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	fixedTol float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		fixedTol: 1e-6,
	}
}

// Step takes one fifth-order step of exactly dx without error control.
func (r *RK45) Step(sys ode.System, y ode.State, x, dx float64) (ode.State, error) {
	next, _, err := r.stage(sys, y, x, dx)
	return next, err
}

// StepAdaptive attempts a step of dx. When the error estimate exceeds tol it
// returns ode.ErrStepRejected together with a smaller retry size; otherwise it
// returns the new state and the proposed next step.
func (r *RK45) StepAdaptive(sys ode.System, y ode.State, x, dx, tol float64) (ode.State, float64, error) {
	if tol <= 0 {
		tol = r.fixedTol
	}

	next, errEst, err := r.stage(sys, y, x, dx)
	if err != nil {
		return nil, dx * r.minScale, err
	}

	errMax := 0.0
	for i := range y {
		scale := tol + tol*math.Max(math.Abs(y[i]), math.Abs(next[i]))
		errMax = math.Max(errMax, math.Abs(errEst[i])/scale)
	}

	if math.IsNaN(errMax) || !next.IsValid() {
		return nil, dx * r.minScale, ode.ErrStepRejected
	}

	if errMax > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errMax, -0.25))
		return nil, dx * scale, ode.ErrStepRejected
	}

	dxNew := dx * r.maxScale
	if errMax > 0 {
		dxNew = dx * math.Min(r.maxScale, r.safety*math.Pow(errMax, -0.2))
	}
	return next, dxNew, nil
}

func (r *RK45) stage(sys ode.System, y ode.State, x, dx float64) (ode.State, ode.State, error) {
	n := len(y)

	k1, err := sys.Derive(y, x)
	if err != nil {
		return nil, nil, err
	}

	y2 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y2[i] = y[i] + dx*b21*k1[i]
	}
	k2, err := sys.Derive(y2, x+a2*dx)
	if err != nil {
		return nil, nil, err
	}

	y3 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y3[i] = y[i] + dx*(b31*k1[i]+b32*k2[i])
	}
	k3, err := sys.Derive(y3, x+a3*dx)
	if err != nil {
		return nil, nil, err
	}

	y4 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y4[i] = y[i] + dx*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4, err := sys.Derive(y4, x+a4*dx)
	if err != nil {
		return nil, nil, err
	}

	y5 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y5[i] = y[i] + dx*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5, err := sys.Derive(y5, x+a5*dx)
	if err != nil {
		return nil, nil, err
	}

	y6 := make(ode.State, n)
	for i := 0; i < n; i++ {
		y6[i] = y[i] + dx*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6, err := sys.Derive(y6, x+dx)
	if err != nil {
		return nil, nil, err
	}

	yNew := make(ode.State, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + dx*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7, err := sys.Derive(yNew, x+dx)
	if err != nil {
		return nil, nil, err
	}

	errEst := make(ode.State, n)
	for i := 0; i < n; i++ {
		errEst[i] = dx * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
	}

	return yNew, errEst, nil
}
