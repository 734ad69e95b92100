package contactline

import "errors"

var (
	// ErrSingularEvaluation is returned when the right-hand side is evaluated
	// at or within the guard floor of a pole with the guard disabled.
	ErrSingularEvaluation = errors.New("contactline: singular evaluation of h'''")

	// ErrNonPhysicalState is returned for non-finite heights and for h <= 0
	// away from the origin.
	ErrNonPhysicalState = errors.New("contactline: non-physical state")
)
