package bvp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/contactline/internal/contactline"
	"github.com/san-kum/contactline/internal/ode"
	"github.com/san-kum/contactline/internal/optim"
)

var (
	ErrSingularEvaluation     = contactline.ErrSingularEvaluation
	ErrNonPhysicalState       = contactline.ErrNonPhysicalState
	ErrNonConvergence         = errors.New("bvp: solver did not converge")
	ErrTruncationInsufficient = errors.New("bvp: truncation domain insufficient")

	ErrSingularMatrix = errors.New("bvp: singular jacobian")
	ErrOutOfRange     = errors.New("bvp: abscissa outside solution domain")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindSingularEvaluation
	KindNonPhysicalState
	KindNonConvergence
	KindTruncationInsufficient
)

func (k Kind) String() string {
	switch k {
	case KindSingularEvaluation:
		return "SingularEvaluation"
	case KindNonPhysicalState:
		return "NonPhysicalState"
	case KindNonConvergence:
		return "NonConvergence"
	case KindTruncationInsufficient:
		return "TruncationInsufficient"
	}
	return "Unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindSingularEvaluation:
		return ErrSingularEvaluation
	case KindNonPhysicalState:
		return ErrNonPhysicalState
	case KindNonConvergence:
		return ErrNonConvergence
	case KindTruncationInsufficient:
		return ErrTruncationInsufficient
	}
	return nil
}

// Classify maps an error chain onto the failure taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrSingularEvaluation):
		return KindSingularEvaluation
	case errors.Is(err, ErrTruncationInsufficient):
		return KindTruncationInsufficient
	case errors.Is(err, ErrNonConvergence),
		errors.Is(err, optim.ErrNotConverged),
		errors.Is(err, optim.ErrNoSignChange),
		errors.Is(err, ode.ErrMaxSteps),
		errors.Is(err, ode.ErrStepTooSmall),
		errors.Is(err, ErrSingularMatrix):
		return KindNonConvergence
	case errors.Is(err, ErrNonPhysicalState), errors.Is(err, ode.ErrInvalidState):
		return KindNonPhysicalState
	}
	return KindUnknown
}

// SolveError reports a failed solve together with the parameters it was
// attempted with.
type SolveError struct {
	Kind         Kind
	Method       Method
	Constant     float64
	XMax         float64
	Shoot        float64
	LastResidual float64
	Iterations   int
	Err          error
}

func (e *SolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s solve failed (c=%g, X=%g", e.Kind, e.Method, e.Constant, e.XMax)
	if e.Iterations > 0 {
		fmt.Fprintf(&b, ", s=%.10g, residual=%.3e, iterations=%d", e.Shoot, e.LastResidual, e.Iterations)
	}
	b.WriteString(")")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SolveError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
