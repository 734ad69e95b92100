package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/contactline/internal/bvp"
)

// Deviation summarises |h' - θ| over the compared part of a grid.
type Deviation struct {
	MaxAbs float64
	MaxRel float64
	RMS    float64
	At     float64
	N      int
}

// Compare measures how far the solved slope strays from cv for x >= from.
func Compare(sol *bvp.Solution, cv CoxVoinov, from float64) (Deviation, error) {
	var diff, rel, xs []float64
	for _, p := range sol.Points() {
		if p.X < from || p.X <= 0 {
			continue
		}
		theta := cv.Slope(p.X)
		if math.IsNaN(theta) {
			continue
		}
		d := math.Abs(p.Slope - theta)
		diff = append(diff, d)
		rel = append(rel, d/theta)
		xs = append(xs, p.X)
	}
	if len(diff) == 0 {
		return Deviation{}, ErrInsufficientData
	}

	i := floats.MaxIdx(diff)
	return Deviation{
		MaxAbs: diff[i],
		MaxRel: floats.Max(rel),
		RMS:    floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))),
		At:     xs[i],
		N:      len(diff),
	}, nil
}
