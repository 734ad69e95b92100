package analysis

import (
	"math"
)

// CoxVoinov is the large-x slope law of a thin film with a logarithmic
// curvature singularity:
//
//	θ(x)³ = θ0³ + 3c·ln(e·x),   dθ/dx = c / (x·θ²)
type CoxVoinov struct {
	Constant float64
	Slope0   float64
}

func NewCoxVoinov(c float64) CoxVoinov {
	return CoxVoinov{Constant: c, Slope0: 1}
}

// SlopeCubed returns θ³ at x, or NaN for x <= 0.
func (cv CoxVoinov) SlopeCubed(x float64) float64 {
	if x <= 0 {
		return math.NaN()
	}
	s0 := cv.Slope0
	return s0*s0*s0 + 3*cv.Constant*(1+math.Log(x))
}

// Slope returns θ at x. It is NaN where the law has no positive root.
func (cv CoxVoinov) Slope(x float64) float64 {
	t3 := cv.SlopeCubed(x)
	if math.IsNaN(t3) || t3 <= 0 {
		return math.NaN()
	}
	return math.Cbrt(t3)
}

func (cv CoxVoinov) SlopeDerivative(x float64) float64 {
	theta := cv.Slope(x)
	if math.IsNaN(theta) {
		return math.NaN()
	}
	return cv.Constant / (x * theta * theta)
}

// Sample evaluates θ and dθ/dx on xs.
func (cv CoxVoinov) Sample(xs []float64) (theta, dtheta []float64) {
	theta = make([]float64, len(xs))
	dtheta = make([]float64, len(xs))
	for i, x := range xs {
		theta[i] = cv.Slope(x)
		dtheta[i] = cv.SlopeDerivative(x)
	}
	return theta, dtheta
}

// LogSpace returns n points spaced evenly in log10 between lo and hi.
func LogSpace(lo, hi float64, n int) []float64 {
	if n < 2 || lo <= 0 || hi <= lo {
		return nil
	}
	a, b := math.Log10(lo), math.Log10(hi)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}
	xs[n-1] = hi
	return xs
}
