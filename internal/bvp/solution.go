package bvp

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/contactline/internal/contactline"
)

type Method string

const (
	MethodShooting    Method = "shooting"
	MethodCollocation Method = "collocation"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodShooting, MethodCollocation:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown method: %s", s)
}

// Point is one grid node of an accepted profile.
type Point struct {
	X         float64
	H         float64
	Slope     float64
	Curvature float64
	Third     float64
}

// Solution is an accepted profile on [0, X]. It is immutable; accessors
// return copies.
type Solution struct {
	method     Method
	constant   float64
	bc         contactline.BoundaryConditions
	xmax       float64
	shoot      float64
	residual   float64
	iterations int
	points     []Point
	warnings   []error
	metrics    map[string]float64
	truncation *TruncationReport
}

func newSolution(prob *contactline.Problem, method Method, xmax float64, pts []Point) *Solution {
	sol := &Solution{
		method:   method,
		constant: prob.Constant,
		bc:       prob.BC,
		xmax:     xmax,
		points:   pts,
		metrics:  make(map[string]float64),
	}
	if len(pts) > 0 {
		sol.shoot = pts[0].Curvature
		sol.residual = pts[len(pts)-1].Curvature - prob.BC.FarCurvature
	}
	return sol
}

// Restore rebuilds a solution from stored (x, h, h', h'') rows, recomputing
// h''' from the equation.
func Restore(prob *contactline.Problem, method Method, xmax float64, pts []Point) (*Solution, error) {
	if len(pts) < 2 {
		return nil, fmt.Errorf("bvp: restore needs at least two points, got %d", len(pts))
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		if i > 0 && !(p.X > pts[i-1].X) {
			return nil, fmt.Errorf("bvp: abscissae not increasing at row %d", i)
		}
		p.Third = third(prob, p.H)
		out[i] = p
	}
	return newSolution(prob, method, xmax, out), nil
}

// Record is what a persisted run knows beyond its grid.
type Record struct {
	Iterations int
	Metrics    map[string]float64
	Warnings   []string
	Truncation *TruncationReport
}

// RestoreRecord is Restore that also reattaches the iteration count,
// metrics, warnings and truncation report of the original solve.
func RestoreRecord(prob *contactline.Problem, method Method, xmax float64, pts []Point, rec Record) (*Solution, error) {
	sol, err := Restore(prob, method, xmax, pts)
	if err != nil {
		return nil, err
	}
	sol.iterations = rec.Iterations
	for k, v := range rec.Metrics {
		sol.metrics[k] = v
	}
	for _, msg := range rec.Warnings {
		sol.warnings = append(sol.warnings, storedWarning(msg))
	}
	if rec.Truncation != nil {
		r := *rec.Truncation
		sol.truncation = &r
	}
	return sol, nil
}

// storedWarning is a warning read back from a run record. It keeps the
// original message and classifies by its kind prefix.
type storedWarning string

func (w storedWarning) Error() string { return string(w) }

func (w storedWarning) Unwrap() error {
	for _, k := range []Kind{KindTruncationInsufficient, KindNonConvergence, KindNonPhysicalState, KindSingularEvaluation} {
		if strings.HasPrefix(string(w), k.String()+":") {
			return k.sentinel()
		}
	}
	return nil
}

// third evaluates h''' with the guard forced on so stored profiles always
// have a finite value.
func third(prob *contactline.Problem, h float64) float64 {
	guarded := *prob
	guarded.Guard.Enabled = true
	v, err := guarded.ThirdDerivative(h)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (s *Solution) Method() Method                                     { return s.method }
func (s *Solution) Constant() float64                                  { return s.constant }
func (s *Solution) BoundaryConditions() contactline.BoundaryConditions { return s.bc }
func (s *Solution) XMax() float64                                      { return s.xmax }

// Shoot returns h''(0).
func (s *Solution) Shoot() float64 { return s.shoot }

// Residual returns h''(X) minus the far-field condition.
func (s *Solution) Residual() float64 { return s.residual }
func (s *Solution) Iterations() int   { return s.iterations }
func (s *Solution) Len() int          { return len(s.points) }

func (s *Solution) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

func (s *Solution) At(i int) Point { return s.points[i] }

// Column returns one component of every point.
func (s *Solution) Column(f func(Point) float64) []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = f(p)
	}
	return out
}

func (s *Solution) Warnings() []error {
	out := make([]error, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s *Solution) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// Truncation returns the domain-doubling report, nil if the check was not run.
func (s *Solution) Truncation() *TruncationReport {
	if s.truncation == nil {
		return nil
	}
	r := *s.truncation
	return &r
}

// Interpolate evaluates the profile at x with cubic Hermite interpolation of
// each component against its derivative.
func (s *Solution) Interpolate(x float64) (Point, error) {
	n := len(s.points)
	if n == 0 || x < s.points[0].X || x > s.points[n-1].X || math.IsNaN(x) {
		return Point{}, fmt.Errorf("%w: %g", ErrOutOfRange, x)
	}
	i := sort.Search(n, func(k int) bool { return s.points[k].X >= x })
	if s.points[i].X == x {
		return s.points[i], nil
	}
	a, b := s.points[i-1], s.points[i]
	dx := b.X - a.X
	t := (x - a.X) / dx

	return Point{
		X:         x,
		H:         hermite(a.H, b.H, a.Slope, b.Slope, dx, t),
		Slope:     hermite(a.Slope, b.Slope, a.Curvature, b.Curvature, dx, t),
		Curvature: hermite(a.Curvature, b.Curvature, a.Third, b.Third, dx, t),
		Third:     a.Third + t*(b.Third-a.Third),
	}, nil
}

func hermite(y0, y1, d0, d1, dx, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return (2*t3-3*t2+1)*y0 + (t3-2*t2+t)*dx*d0 + (-2*t3+3*t2)*y1 + (t3-t2)*dx*d1
}

// Resample returns n points evenly spaced on [0, X].
func (s *Solution) Resample(n int) []Point {
	if n < 2 || len(s.points) < 2 {
		return s.Points()
	}
	lo, hi := s.points[0].X, s.points[len(s.points)-1].X
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		x := lo + (hi-lo)*float64(i)/float64(n-1)
		if i == n-1 {
			x = hi
		}
		p, err := s.Interpolate(x)
		if err != nil {
			p = s.points[len(s.points)-1]
		}
		out[i] = p
	}
	return out
}
