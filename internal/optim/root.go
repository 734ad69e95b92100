package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Func is a scalar objective. It may return a *SignedError for samples whose
// magnitude is unusable.
type Func func(ctx context.Context, x float64) (float64, error)

type Sample struct {
	X     float64
	F     float64
	Sign  int
	Exact bool
	Err   error
}

// Evaluate calls f once and classifies the outcome. Errors other than
// SignedError are returned unchanged.
func Evaluate(ctx context.Context, f Func, x float64) (Sample, error) {
	v, err := f(ctx, x)
	if err != nil {
		var se *SignedError
		if errors.As(err, &se) {
			return Sample{X: x, F: math.NaN(), Sign: se.Sign, Err: err}, nil
		}
		return Sample{X: x, F: math.NaN(), Err: err}, err
	}
	if math.IsNaN(v) {
		return Sample{X: x, F: v, Err: err}, fmt.Errorf("optim: objective returned NaN at %g", x)
	}
	return Sample{X: x, F: v, Sign: sign(v), Exact: true}, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

type Bracket struct {
	Low, High float64
}

func (b Bracket) Valid() bool {
	return !math.IsNaN(b.Low) && !math.IsNaN(b.High) && b.Low < b.High
}

type Options struct {
	Tol     float64
	MaxIter int
	// XTol stops the iteration when the bracket width falls below it.
	XTol float64
	// Grow is the bracket expansion factor.
	Grow float64
	// MaxExpand bounds the number of expansion attempts.
	MaxExpand int
}

func DefaultOptions() Options {
	return Options{
		Tol:       1e-6,
		MaxIter:   100,
		XTol:      1e-14,
		Grow:      1.6,
		MaxExpand: 30,
	}
}

type Result struct {
	Root        float64
	Residual    float64
	Iterations  int
	Evaluations int
	Converged   bool
	Bracket     Bracket
	History     []Sample
}

// Expand grows b until the objective changes sign across it. The endpoint
// with the smaller residual is pushed outward; a one-sided endpoint is kept
// and the other one moved.
func Expand(ctx context.Context, f Func, b Bracket, opts Options) (Sample, Sample, *Result, error) {
	res := &Result{Bracket: b}
	if !b.Valid() {
		return Sample{}, Sample{}, res, fmt.Errorf("%w: [%g, %g]", ErrInvalidBounds, b.Low, b.High)
	}

	lo, err := Evaluate(ctx, f, b.Low)
	res.Evaluations++
	res.History = append(res.History, lo)
	if err != nil {
		return lo, Sample{}, res, err
	}
	hi, err := Evaluate(ctx, f, b.High)
	res.Evaluations++
	res.History = append(res.History, hi)
	if err != nil {
		return lo, hi, res, err
	}

	for i := 0; i < opts.MaxExpand; i++ {
		if lo.Sign == 0 || hi.Sign == 0 || lo.Sign != hi.Sign {
			res.Bracket = Bracket{Low: lo.X, High: hi.X}
			return lo, hi, res, nil
		}
		if err := ctx.Err(); err != nil {
			return lo, hi, res, err
		}

		width := hi.X - lo.X
		moveLow := lo.Exact && (!hi.Exact || math.Abs(lo.F) < math.Abs(hi.F))
		if moveLow {
			lo, err = Evaluate(ctx, f, lo.X-opts.Grow*width)
			res.History = append(res.History, lo)
		} else {
			hi, err = Evaluate(ctx, f, hi.X+opts.Grow*width)
			res.History = append(res.History, hi)
		}
		res.Evaluations++
		if err != nil {
			return lo, hi, res, err
		}
	}

	res.Bracket = Bracket{Low: lo.X, High: hi.X}
	return lo, hi, res, fmt.Errorf("%w: [%g, %g] after %d expansions", ErrNoSignChange, lo.X, hi.X, opts.MaxExpand)
}

// Illinois finds a root of f inside b. It expands the bracket first, then
// runs regula falsi with the Illinois weight halving, falling back to
// bisection whenever an endpoint is one-sided or the secant leaves the
// bracket.
func Illinois(ctx context.Context, f Func, b Bracket, opts Options) (*Result, error) {
	a, c, res, err := Expand(ctx, f, b, opts)
	if err != nil {
		return res, err
	}

	for _, s := range []Sample{a, c} {
		if s.Sign == 0 || (s.Exact && math.Abs(s.F) <= opts.Tol) {
			finish(res, s, true)
			return res, nil
		}
	}

	fa, fc := a.F, c.F
	side := 0

	for res.Iterations < opts.MaxIter {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Iterations++

		x := 0.5 * (a.X + c.X)
		if a.Exact && c.Exact {
			x = c.X - fc*(c.X-a.X)/(fc-fa)
			if !(x > math.Min(a.X, c.X) && x < math.Max(a.X, c.X)) {
				x = 0.5 * (a.X + c.X)
			}
		}

		s, err := Evaluate(ctx, f, x)
		res.Evaluations++
		res.History = append(res.History, s)
		if err != nil {
			return res, err
		}

		if s.Sign == 0 || (s.Exact && math.Abs(s.F) <= opts.Tol) {
			res.Bracket = Bracket{Low: math.Min(a.X, c.X), High: math.Max(a.X, c.X)}
			finish(res, s, true)
			return res, nil
		}

		if s.Sign == c.Sign {
			c, fc = s, s.F
			if side == -1 && a.Exact {
				fa /= 2
			}
			side = -1
		} else {
			a, fa = s, s.F
			if side == 1 && c.Exact {
				fc /= 2
			}
			side = 1
		}

		res.Bracket = Bracket{Low: math.Min(a.X, c.X), High: math.Max(a.X, c.X)}
		best := a
		if !a.Exact || (c.Exact && math.Abs(c.F) < math.Abs(a.F)) {
			best = c
		}
		finish(res, best, false)

		if math.Abs(c.X-a.X) <= opts.XTol*math.Max(1, math.Abs(s.X)) {
			break
		}
	}

	return res, fmt.Errorf("%w: |f|=%g after %d iterations", ErrNotConverged, math.Abs(res.Residual), res.Iterations)
}

func finish(res *Result, s Sample, converged bool) {
	res.Root = s.X
	res.Residual = s.F
	res.Converged = converged
}
