package figure

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"

	"github.com/san-kum/contactline/internal/analysis"
	"github.com/san-kum/contactline/internal/bvp"
)

// Render writes the two-panel h'(x) / h''(x) figure of sol to path.
func Render(sol *bvp.Solution, path string, opts Options) error {
	opts = opts.withDefaults()
	pts := sol.Resample(opts.Samples)

	xs := make([]float64, len(pts))
	slope := make([]float64, len(pts))
	curv := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], slope[i], curv[i] = p.X, p.Slope, p.Curvature
	}

	bc := sol.BoundaryConditions().String()
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("c = %g, X = %g (%s)", sol.Constant(), sol.XMax(), sol.Method())
	}

	top, err := panel(title, "h'(x)", xs, slope, slopeColor, "h'(x), "+bc)
	if err != nil {
		return fmt.Errorf("slope panel: %w", err)
	}
	bottom, err := panel("", "h''(x)", xs, curv, curvatureColor, "h''(x), "+bc)
	if err != nil {
		return fmt.Errorf("curvature panel: %w", err)
	}

	return save([]*plot.Plot{top, bottom}, path, opts)
}

func panel(title, ylabel string, xs, ys []float64, c color.Color, legend string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = ylabel
	stylePlot(p)

	line, err := newLine(xs, ys, c)
	if err != nil {
		return nil, err
	}
	p.Add(line)
	p.Legend.Add(legend, line)
	return p, nil
}

// RenderLogLog writes |h'| and |h''| on log–log axes. Points at x = 0 are
// skipped and magnitudes are clipped at [Clip].
func RenderLogLog(sol *bvp.Solution, path string, opts Options) error {
	opts = opts.withDefaults()

	var xs, slope, curv []float64
	for _, p := range sol.Points() {
		if p.X <= 0 {
			continue
		}
		xs = append(xs, p.X)
		slope = append(slope, math.Max(math.Abs(p.Slope), Clip))
		curv = append(curv, math.Max(math.Abs(p.Curvature), Clip))
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("|h'|, |h''| on log–log axes (c = %g, X = %g)", sol.Constant(), sol.XMax())
	}
	p.X.Label.Text = "x"
	p.Y.Label.Text = "magnitude"
	stylePlot(p)
	logAxes(p)

	ls, err := newLine(xs, slope, slopeColor)
	if err != nil {
		return err
	}
	lc, err := newLine(xs, curv, curvatureColor)
	if err != nil {
		return err
	}
	p.Add(ls, lc)
	p.Legend.Add("|h'(x)|", ls)
	p.Legend.Add("|h''(x)|, "+sol.BoundaryConditions().String(), lc)

	return save([]*plot.Plot{p}, path, opts)
}

// RenderAsymptote plots θ³ and dθ/dx of the Cox–Voinov law on [lo, hi].
// With logScale the abscissae are spaced logarithmically and both axes are
// logarithmic.
func RenderAsymptote(cv analysis.CoxVoinov, lo, hi float64, logScale bool, path string, opts Options) error {
	opts = opts.withDefaults()
	if lo <= 0 || hi <= lo {
		return fmt.Errorf("figure: invalid range [%g, %g]", lo, hi)
	}

	n := max(opts.Samples, 2)
	var xs []float64
	if logScale {
		xs = analysis.LogSpace(lo, hi, n)
	} else {
		xs = make([]float64, n)
		for i := range xs {
			xs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		}
	}

	cubed := make([]float64, len(xs))
	for i, x := range xs {
		cubed[i] = cv.SlopeCubed(x)
		if logScale && cubed[i] <= 0 {
			cubed[i] = math.NaN()
		}
	}
	_, dtheta := cv.Sample(xs)

	law := fmt.Sprintf("θ³ = %g + %g ln(e x)", math.Pow(cv.Slope0, 3), 3*cv.Constant)

	top, err := panel(law, "θ³", xs, cubed, slopeColor, "θ³(x)")
	if err != nil {
		return err
	}
	bottom, err := panel(fmt.Sprintf("dθ/dx = %g / (x θ²)", cv.Constant), "dθ/dx", xs, dtheta, curvatureColor, "dθ/dx")
	if err != nil {
		return err
	}
	if logScale {
		logAxes(top)
		logAxes(bottom)
	}

	return save([]*plot.Plot{top, bottom}, path, opts)
}
