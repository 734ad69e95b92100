package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/contactline/internal/bvp"
)

var ErrInsufficientData = errors.New("analysis: need at least two positive samples")

// PowerLaw is y ≈ Prefactor·x^Exponent.
type PowerLaw struct {
	Prefactor float64
	Exponent  float64
	R2        float64
	N         int
}

func (p PowerLaw) Eval(x float64) float64 {
	return p.Prefactor * math.Pow(x, p.Exponent)
}

func (p PowerLaw) String() string {
	return fmt.Sprintf("%.4g·x^%.4g (R²=%.4f, n=%d)", p.Prefactor, p.Exponent, p.R2, p.N)
}

// FitPowerLaw regresses log|y| on log x. Samples with x <= 0 or y == 0 are
// skipped.
func FitPowerLaw(xs, ys []float64) (PowerLaw, error) {
	if len(xs) != len(ys) {
		return PowerLaw{}, fmt.Errorf("analysis: length mismatch %d != %d", len(xs), len(ys))
	}

	lx := make([]float64, 0, len(xs))
	ly := make([]float64, 0, len(ys))
	for i, x := range xs {
		y := math.Abs(ys[i])
		if x <= 0 || y == 0 || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		lx = append(lx, math.Log(x))
		ly = append(ly, math.Log(y))
	}
	if len(lx) < 2 {
		return PowerLaw{}, ErrInsufficientData
	}

	alpha, beta := stat.LinearRegression(lx, ly, nil, false)
	return PowerLaw{
		Prefactor: math.Exp(alpha),
		Exponent:  beta,
		R2:        stat.RSquared(lx, ly, nil, alpha, beta),
		N:         len(lx),
	}, nil
}

// FitWindow fits col over the grid points with lo <= x <= hi.
func FitWindow(sol *bvp.Solution, col func(bvp.Point) float64, lo, hi float64) (PowerLaw, error) {
	var xs, ys []float64
	for _, p := range sol.Points() {
		if p.X < lo || p.X > hi {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, col(p))
	}
	return FitPowerLaw(xs, ys)
}
