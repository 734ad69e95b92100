package optim

import (
	"context"
	"fmt"
)

// Scan samples f on n evenly spaced points of b. Failed evaluations are
// kept in the output with their error.
func Scan(ctx context.Context, f Func, b Bracket, n int) ([]Sample, error) {
	if !b.Valid() || n < 2 {
		return nil, fmt.Errorf("%w: [%g, %g] with %d points", ErrInvalidBounds, b.Low, b.High, n)
	}

	out := make([]Sample, 0, n)
	step := (b.High - b.Low) / float64(n-1)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		x := b.Low + float64(i)*step
		if i == n-1 {
			x = b.High
		}
		s, _ := Evaluate(ctx, f, x)
		out = append(out, s)
	}
	return out, nil
}

// SignChanges returns the indices i such that samples i and i+1 straddle a
// root.
func SignChanges(samples []Sample) []int {
	var idx []int
	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[i+1]
		if a.Sign != 0 && b.Sign != 0 && a.Sign != b.Sign {
			idx = append(idx, i)
		}
	}
	return idx
}
