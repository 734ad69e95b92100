package bvp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/contactline/internal/contactline"
)

const (
	collocationKL = 4
	collocationKU = 3

	newtonTol       = 1e-10
	maxBacktracking = 40
)

// Collocation solves the boundary value problem with trapezoidal collocation
// on a mesh graded geometrically toward the origin.
type Collocation struct {
	Problem  *contactline.Problem
	XMax     float64
	Tol      float64
	MaxIter  int
	Nodes    int
	MaxNodes int
	Log      zerolog.Logger
}

type vec3 [3]float64

// GeometricMesh returns n nodes: 0, then floor·r^k for k = 0..n-2 ending at
// xmax.
func GeometricMesh(floor, xmax float64, n int) ([]float64, error) {
	if n < 3 {
		return nil, fmt.Errorf("bvp: mesh needs at least 3 nodes, got %d", n)
	}
	if !(floor > 0) || !(xmax > floor) {
		return nil, fmt.Errorf("bvp: mesh needs 0 < floor < xmax, got floor=%g xmax=%g", floor, xmax)
	}
	mesh := make([]float64, n)
	ratio := math.Pow(xmax/floor, 1/float64(n-2))
	x := floor
	for k := 1; k < n; k++ {
		mesh[k] = x
		x *= ratio
	}
	mesh[n-1] = xmax
	return mesh, nil
}

func (c *Collocation) f(y vec3) (vec3, error) {
	g, err := c.Problem.ThirdDerivative(y[0])
	if err != nil {
		return vec3{}, err
	}
	return vec3{y[1], y[2], g}, nil
}

func (c *Collocation) Solve(ctx context.Context) (*Solution, error) {
	mesh, err := GeometricMesh(c.Problem.Guard.Floor, c.XMax, c.Nodes)
	if err != nil {
		return nil, err
	}

	bc := c.Problem.BC
	y := make([]vec3, len(mesh))
	for i, x := range mesh {
		y[i] = vec3{bc.H0 + bc.Slope0*x, bc.Slope0, 0}
	}

	totalIter := 0
	refinements := 0
	worst := math.Inf(1)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var iters int
		y, iters, err = c.newton(ctx, mesh, y)
		totalIter += iters
		if err != nil {
			return nil, c.fail(err, y, worst, totalIter)
		}

		for i := 1; i < len(mesh); i++ {
			if y[i][0] <= 0 {
				return nil, c.fail(fmt.Errorf("%w: h=%g at x=%g", ErrNonPhysicalState, y[i][0], mesh[i]), y, worst, totalIter)
			}
		}

		ind, err := c.indicators(mesh, y)
		if err != nil {
			return nil, c.fail(err, y, worst, totalIter)
		}
		worst = floats.Max(ind)

		c.Log.Debug().
			Int("nodes", len(mesh)).
			Int("newton", iters).
			Float64("max_residual", worst).
			Msg("collocation pass")

		if worst <= c.Tol {
			break
		}
		if len(mesh) >= c.MaxNodes || refinements >= c.MaxIter {
			return nil, c.fail(fmt.Errorf("%w: mesh residual %.3e with %d nodes", ErrNonConvergence, worst, len(mesh)), y, worst, totalIter)
		}

		mesh, y, err = c.refine(mesh, y, ind)
		if err != nil {
			return nil, c.fail(err, y, worst, totalIter)
		}
		refinements++
	}

	pts := make([]Point, len(mesh))
	for i, x := range mesh {
		fy, err := c.f(y[i])
		if err != nil {
			return nil, c.fail(err, y, worst, totalIter)
		}
		pts[i] = Point{X: x, H: y[i][0], Slope: y[i][1], Curvature: y[i][2], Third: fy[2]}
	}

	sol := newSolution(c.Problem, MethodCollocation, c.XMax, pts)
	sol.iterations = totalIter
	sol.metrics["nodes"] = float64(len(mesh))
	sol.metrics["newton_iterations"] = float64(totalIter)
	sol.metrics["refinements"] = float64(refinements)
	sol.metrics["max_mesh_residual"] = worst
	return sol, nil
}

type collocationFailure struct {
	shoot    float64
	residual float64
	iters    int
	err      error
}

func (f *collocationFailure) Error() string { return f.err.Error() }
func (f *collocationFailure) Unwrap() error { return f.err }

func (c *Collocation) fail(err error, y []vec3, residual float64, iters int) error {
	shoot := math.NaN()
	if len(y) > 0 {
		shoot = y[0][2]
	}
	if math.IsInf(residual, 0) {
		residual = math.NaN()
	}
	return &collocationFailure{shoot: shoot, residual: residual, iters: iters, err: err}
}

// residual fills F for the current mesh and profile.
func (c *Collocation) residual(mesh []float64, y []vec3, fy []vec3, F []float64) error {
	bc := c.Problem.BC
	for i := range y {
		v, err := c.f(y[i])
		if err != nil {
			return err
		}
		fy[i] = v
	}

	F[0] = y[0][0] - bc.H0
	F[1] = y[0][1] - bc.Slope0
	for i := 0; i+1 < len(mesh); i++ {
		h := mesh[i+1] - mesh[i]
		for k := 0; k < 3; k++ {
			F[2+3*i+k] = y[i+1][k] - y[i][k] - 0.5*h*(fy[i][k]+fy[i+1][k])
		}
	}
	F[len(F)-1] = y[len(y)-1][2] - bc.FarCurvature
	return nil
}

func (c *Collocation) jacobian(mesh []float64, y []vec3, J *Band) error {
	J.Zero()
	J.Set(0, 0, 1)
	J.Set(1, 1, 1)

	slopes := make([]float64, len(y))
	for i := range y {
		g, err := c.Problem.ThirdDerivativeSlope(y[i][0])
		if err != nil {
			return err
		}
		slopes[i] = g
	}

	for i := 0; i+1 < len(mesh); i++ {
		h := mesh[i+1] - mesh[i]
		row := 2 + 3*i
		left, right := 3*i, 3*(i+1)

		// d/dy of y_{i+1} - y_i - h/2 (f_i + f_{i+1}) with f = (y1, y2, g(y0)).
		for k := 0; k < 3; k++ {
			J.Set(row+k, left+k, -1)
			J.Set(row+k, right+k, 1)
		}
		J.Add(row, left+1, -0.5*h)
		J.Add(row, right+1, -0.5*h)
		J.Add(row+1, left+2, -0.5*h)
		J.Add(row+1, right+2, -0.5*h)
		J.Add(row+2, left, -0.5*h*slopes[i])
		J.Add(row+2, right, -0.5*h*slopes[i+1])
	}

	n := 3 * len(y)
	J.Set(n-1, n-1, 1)
	return nil
}

func (c *Collocation) newton(ctx context.Context, mesh []float64, y []vec3) ([]vec3, int, error) {
	n := 3 * len(y)
	F := make([]float64, n)
	Ft := make([]float64, n)
	fy := make([]vec3, len(y))
	J := NewBand(n, collocationKL, collocationKU)

	if err := c.residual(mesh, y, fy, F); err != nil {
		return y, 0, err
	}
	norm := floats.Norm(F, math.Inf(1))

	trial := make([]vec3, len(y))
	for iter := 0; iter < c.MaxIter; iter++ {
		if norm <= newtonTol {
			return y, iter, nil
		}
		if err := ctx.Err(); err != nil {
			return y, iter, err
		}

		if err := c.jacobian(mesh, y, J); err != nil {
			return y, iter, err
		}
		if err := J.Factor(); err != nil {
			return y, iter, err
		}
		delta := make([]float64, n)
		for i := range F {
			delta[i] = -F[i]
		}
		if err := J.Solve(delta); err != nil {
			return y, iter, err
		}

		lambda := 1.0
		accepted := false
		for try := 0; try < maxBacktracking; try++ {
			for i := range y {
				for k := 0; k < 3; k++ {
					trial[i][k] = y[i][k] + lambda*delta[3*i+k]
				}
			}
			err := c.residual(mesh, trial, fy, Ft)
			if err != nil && !errors.Is(err, ErrNonPhysicalState) {
				return y, iter, err
			}
			if err == nil {
				tn := floats.Norm(Ft, math.Inf(1))
				if tn < (1-1e-4*lambda)*norm {
					copy(y, trial)
					copy(F, Ft)
					norm = tn
					accepted = true
					break
				}
			}
			lambda /= 2
		}
		if !accepted {
			if norm <= 1e3*newtonTol {
				return y, iter + 1, nil
			}
			return y, iter + 1, fmt.Errorf("%w: newton line search stalled at |F|=%.3e", ErrNonConvergence, norm)
		}

		c.Log.Debug().Int("iter", iter+1).Float64("residual", norm).Float64("step", lambda).Msg("newton")
	}

	if norm <= newtonTol {
		return y, c.MaxIter, nil
	}
	return y, c.MaxIter, fmt.Errorf("%w: newton |F|=%.3e after %d iterations", ErrNonConvergence, norm, c.MaxIter)
}

// midpoint evaluates the cubic Hermite interpolant of interval i at its
// centre.
func (c *Collocation) midpoint(mesh []float64, y []vec3, i int) (vec3, vec3, vec3, error) {
	fa, err := c.f(y[i])
	if err != nil {
		return vec3{}, vec3{}, vec3{}, err
	}
	fb, err := c.f(y[i+1])
	if err != nil {
		return vec3{}, vec3{}, vec3{}, err
	}
	h := mesh[i+1] - mesh[i]
	var ym vec3
	for k := 0; k < 3; k++ {
		ym[k] = 0.5*(y[i][k]+y[i+1][k]) + h/8*(fa[k]-fb[k])
	}
	return ym, fa, fb, nil
}

// indicators returns the scaled midpoint residual of every interval.
func (c *Collocation) indicators(mesh []float64, y []vec3) ([]float64, error) {
	out := make([]float64, len(mesh)-1)
	for i := range out {
		ym, fa, fb, err := c.midpoint(mesh, y, i)
		if err != nil {
			return nil, err
		}
		fm, err := c.f(ym)
		if err != nil {
			return nil, err
		}
		h := mesh[i+1] - mesh[i]
		worst := 0.0
		for k := 0; k < 3; k++ {
			r := 0.5*(fa[k]+fb[k]) - fm[k]
			worst = math.Max(worst, h*math.Abs(r)/(1+math.Abs(ym[k])))
		}
		out[i] = worst
	}
	return out, nil
}

// refine bisects every interval whose indicator exceeds the tolerance, worst
// first, without growing the mesh past MaxNodes.
func (c *Collocation) refine(mesh []float64, y []vec3, ind []float64) ([]float64, []vec3, error) {
	var flagged []int
	for i, v := range ind {
		if v > c.Tol {
			flagged = append(flagged, i)
		}
	}
	sort.Slice(flagged, func(a, b int) bool { return ind[flagged[a]] > ind[flagged[b]] })
	if room := c.MaxNodes - len(mesh); len(flagged) > room {
		flagged = flagged[:room]
	}
	split := make(map[int]bool, len(flagged))
	for _, i := range flagged {
		split[i] = true
	}

	newMesh := make([]float64, 0, len(mesh)+len(flagged))
	newY := make([]vec3, 0, len(mesh)+len(flagged))
	for i := range mesh {
		newMesh = append(newMesh, mesh[i])
		newY = append(newY, y[i])
		if split[i] {
			ym, _, _, err := c.midpoint(mesh, y, i)
			if err != nil {
				return mesh, y, err
			}
			newMesh = append(newMesh, 0.5*(mesh[i]+mesh[i+1]))
			newY = append(newY, ym)
		}
	}

	c.Log.Debug().Int("split", len(flagged)).Int("nodes", len(newMesh)).Msg("mesh refined")
	return newMesh, newY, nil
}
