package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/contactline/internal/bvp"
	"github.com/san-kum/contactline/internal/contactline"
)

func coxVoinovSolution(t *testing.T, cv CoxVoinov, perturb float64) *bvp.Solution {
	t.Helper()
	xs := LogSpace(0.01, 50, 200)
	pts := make([]bvp.Point, len(xs))
	for i, x := range xs {
		theta := cv.Slope(x) * (1 + perturb)
		pts[i] = bvp.Point{X: x, H: x * theta, Slope: theta, Curvature: cv.SlopeDerivative(x)}
	}
	sol, err := bvp.Restore(contactline.New(cv.Constant), bvp.MethodShooting, 50, pts)
	if err != nil {
		t.Fatal(err)
	}
	return sol
}

func TestCoxVoinov(t *testing.T) {
	cv := NewCoxVoinov(0.01)

	// at x = 1/e the logarithm vanishes
	if got := cv.Slope(1 / math.E); math.Abs(got-1) > 1e-12 {
		t.Errorf("Slope(1/e) = %g, want 1", got)
	}

	want := math.Cbrt(1 + 0.03*(1+math.Log(50)))
	if got := cv.Slope(50); math.Abs(got-want) > 1e-12 {
		t.Errorf("Slope(50) = %g, want %g", got, want)
	}

	for _, x := range []float64{0, -1} {
		if !math.IsNaN(cv.Slope(x)) || !math.IsNaN(cv.SlopeDerivative(x)) {
			t.Errorf("expected NaN at x=%g", x)
		}
	}

	// dθ/dx against a central difference of θ
	for _, x := range []float64{0.5, 5, 500} {
		h := x * 1e-5
		fd := (cv.Slope(x+h) - cv.Slope(x-h)) / (2 * h)
		if got := cv.SlopeDerivative(x); math.Abs(got-fd) > 1e-6*math.Abs(fd) {
			t.Errorf("x=%g: derivative %g, finite difference %g", x, got, fd)
		}
	}
}

func TestCoxVoinovSample(t *testing.T) {
	cv := NewCoxVoinov(0.01)
	xs := []float64{1, 10, 100}
	theta, dtheta := cv.Sample(xs)
	for i, x := range xs {
		if theta[i] != cv.Slope(x) || dtheta[i] != cv.SlopeDerivative(x) {
			t.Errorf("sample %d mismatch", i)
		}
	}
}

func TestLogSpace(t *testing.T) {
	xs := LogSpace(1e-3, 1e3, 7)
	if len(xs) != 7 {
		t.Fatalf("got %d points", len(xs))
	}
	for i, want := range []float64{1e-3, 1e-2, 1e-1, 1, 10, 100, 1000} {
		if math.Abs(xs[i]-want) > 1e-9*want {
			t.Errorf("xs[%d] = %g, want %g", i, xs[i], want)
		}
	}

	for _, bad := range [][3]float64{{0, 1, 5}, {1, 1, 5}, {1, 10, 1}} {
		if LogSpace(bad[0], bad[1], int(bad[2])) != nil {
			t.Errorf("expected nil for %v", bad)
		}
	}
}

func TestFitPowerLaw(t *testing.T) {
	xs := LogSpace(1, 100, 50)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = -3 * math.Pow(x, -1.5)
	}
	ys[10] = 0

	fit, err := FitPowerLaw(xs, ys)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fit.Exponent+1.5) > 1e-9 {
		t.Errorf("exponent %g, want -1.5", fit.Exponent)
	}
	if math.Abs(fit.Prefactor-3) > 1e-9 {
		t.Errorf("prefactor %g, want 3", fit.Prefactor)
	}
	if fit.R2 < 0.999999 {
		t.Errorf("R² = %g", fit.R2)
	}
	if fit.N != 49 {
		t.Errorf("zero sample should be skipped, n=%d", fit.N)
	}
	if got := fit.Eval(4); math.Abs(got-3.0/8) > 1e-9 {
		t.Errorf("Eval(4) = %g", got)
	}
	if !strings.Contains(fit.String(), "x^-1.5") {
		t.Errorf("unexpected String %q", fit.String())
	}
}

func TestFitPowerLawErrors(t *testing.T) {
	if _, err := FitPowerLaw([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := FitPowerLaw([]float64{0, -1, 2}, []float64{1, 1, 1}); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestFitWindow(t *testing.T) {
	cv := NewCoxVoinov(0.01)
	sol := coxVoinovSolution(t, cv, 0)

	fit, err := FitWindow(sol, func(p bvp.Point) float64 { return p.Curvature }, 5, 50)
	if err != nil {
		t.Fatal(err)
	}
	// c/(xθ²) decays slightly faster than 1/x
	if fit.Exponent > -1 || fit.Exponent < -1.1 {
		t.Errorf("curvature exponent %g", fit.Exponent)
	}
}

func TestCompare(t *testing.T) {
	cv := NewCoxVoinov(0.01)

	exact, err := Compare(coxVoinovSolution(t, cv, 0), cv, 1)
	if err != nil {
		t.Fatal(err)
	}
	if exact.MaxAbs > 1e-12 || exact.RMS > 1e-12 {
		t.Errorf("exact profile deviates: %+v", exact)
	}

	off, err := Compare(coxVoinovSolution(t, cv, 0.01), cv, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(off.MaxRel-0.01) > 1e-9 {
		t.Errorf("MaxRel = %g, want 0.01", off.MaxRel)
	}
	if off.At != 50 {
		t.Errorf("largest deviation expected at the far end, got x=%g", off.At)
	}
	if off.N == 0 || off.N >= 200 {
		t.Errorf("unexpected sample count %d", off.N)
	}

	if _, err := Compare(coxVoinovSolution(t, cv, 0), cv, 100); err != ErrInsufficientData {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestPhasePortrait(t *testing.T) {
	sol := coxVoinovSolution(t, NewCoxVoinov(0.01), 0)
	p := NewPhasePortrait(sol, "h'", "h''",
		func(p bvp.Point) float64 { return p.Slope },
		func(p bvp.Point) float64 { return p.Curvature })

	if len(p.Points) != sol.Len() {
		t.Fatalf("portrait has %d points, grid %d", len(p.Points), sol.Len())
	}

	art := p.ASCII(40, 10)
	lines := strings.Split(strings.TrimSuffix(art, "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(lines))
	}
	for _, l := range lines {
		if n := len([]rune(l)); n != 40 {
			t.Errorf("row width %d", n)
		}
	}
	if !strings.ContainsRune(art, '•') {
		t.Error("no points drawn")
	}

	var nilPortrait *PhasePortrait
	if nilPortrait.ASCII(10, 10) != "" {
		t.Error("nil portrait should render empty")
	}
}
