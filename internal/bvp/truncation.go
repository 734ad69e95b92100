package bvp

import (
	"fmt"
	"math"
)

// TruncationReport compares a solve on [0, X] with a solve on [0, 2X].
//
// The far-curvature ratio |h''_{2X}(X)| / |h''_{2X}(0)| measures how much
// curvature the extended profile still carries at the original truncation
// point, relative to the curvature at the contact line. It decides
// adequacy. The slope and shooting changes are reported alongside.
type TruncationReport struct {
	XMax              float64 `json:"x_max"`
	ExtendedXMax      float64 `json:"extended_x_max"`
	Shoot             float64 `json:"shoot"`
	ExtendedShoot     float64 `json:"extended_shoot"`
	ShootChange       float64 `json:"shoot_change"`
	SlopeChange       float64 `json:"slope_change"`
	FarCurvatureRatio float64 `json:"far_curvature_ratio"`
	Tol               float64 `json:"tol"`
	Adequate          bool    `json:"adequate"`
}

func (r TruncationReport) String() string {
	status := "adequate"
	if !r.Adequate {
		status = "insufficient"
	}
	return fmt.Sprintf("X=%g vs %g: far curvature ratio %.3e (tol %.1e), Δs=%.3e, Δh'(X/2)=%.3e, %s",
		r.XMax, r.ExtendedXMax, r.FarCurvatureRatio, r.Tol, r.ShootChange, r.SlopeChange, status)
}

// CompareTruncation builds the report for base against the solve on the
// doubled domain.
func CompareTruncation(base, extended *Solution, tol float64) (*TruncationReport, error) {
	x := base.XMax()
	atX, err := extended.Interpolate(x)
	if err != nil {
		return nil, err
	}
	half, err := base.Interpolate(x / 2)
	if err != nil {
		return nil, err
	}
	halfExt, err := extended.Interpolate(x / 2)
	if err != nil {
		return nil, err
	}

	ratio := math.Inf(1)
	if s := math.Abs(extended.Shoot()); s > 0 {
		ratio = math.Abs(atX.Curvature-base.BoundaryConditions().FarCurvature) / s
	}

	return &TruncationReport{
		XMax:              x,
		ExtendedXMax:      extended.XMax(),
		Shoot:             base.Shoot(),
		ExtendedShoot:     extended.Shoot(),
		ShootChange:       math.Abs(base.Shoot() - extended.Shoot()),
		SlopeChange:       math.Abs(half.Slope - halfExt.Slope),
		FarCurvatureRatio: ratio,
		Tol:               tol,
		Adequate:          ratio <= tol,
	}, nil
}

func truncationWarning(sol *Solution, r *TruncationReport) *SolveError {
	return &SolveError{
		Kind:         KindTruncationInsufficient,
		Method:       sol.Method(),
		Constant:     sol.Constant(),
		XMax:         r.XMax,
		Shoot:        sol.Shoot(),
		LastResidual: r.FarCurvatureRatio,
		Err:          fmt.Errorf("far curvature ratio %.3e exceeds %.1e", r.FarCurvatureRatio, r.Tol),
	}
}
