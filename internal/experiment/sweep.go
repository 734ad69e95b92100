package experiment

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/config"
)

type Sweep struct {
	Param       string
	Values      []float64
	Concurrency int
}

// Point is the outcome of one sweep value. Failed solves keep their error
// and do not stop the sweep.
type Point struct {
	Value    float64
	Solution *bvp.Solution
	Err      error
	Elapsed  time.Duration
}

// Shoot returns h''(0) of the solution, or NaN for a failed solve.
func (p Point) Shoot() float64 {
	if p.Solution == nil {
		return math.NaN()
	}
	return p.Solution.Shoot()
}

// Run solves base once per value, with at most Concurrency solves in
// flight. Results keep the order of Values.
func Run(ctx context.Context, base *config.Config, sw Sweep, reg *Registry, log zerolog.Logger) ([]Point, error) {
	apply, err := reg.Get(sw.Param)
	if err != nil {
		return nil, err
	}
	limit := sw.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Point, len(sw.Values))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, v := range sw.Values {
		i, v := i, v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cfg := base.Clone()
			apply(cfg, v)

			start := time.Now()
			sol, err := New(cfg, log.With().Float64(sw.Param, v).Logger()).Run(gctx)
			results[i] = Point{Value: v, Solution: sol, Err: err, Elapsed: time.Since(start)}

			if err != nil {
				log.Debug().Err(err).Float64(sw.Param, v).Msg("sweep point failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Drift returns |s_i - s_ref| against the last successful point, the usual
// read-out of a resolution or domain study.
func Drift(points []Point) []float64 {
	ref := math.NaN()
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Solution != nil {
			ref = points[i].Shoot()
			break
		}
	}
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = math.Abs(p.Shoot() - ref)
	}
	return out
}
