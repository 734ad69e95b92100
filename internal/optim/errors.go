package optim

import (
	"errors"
	"fmt"
)

var (
	ErrNoSignChange  = errors.New("optim: no sign change in bracket")
	ErrNotConverged  = errors.New("optim: iteration budget exhausted")
	ErrInvalidBounds = errors.New("optim: invalid bracket")
)

// SignedError marks a failed evaluation whose residual sign is still known.
type SignedError struct {
	Sign int
	Err  error
}

func (e *SignedError) Error() string {
	return fmt.Sprintf("one-sided sample (sign %+d): %v", e.Sign, e.Err)
}

func (e *SignedError) Unwrap() error { return e.Err }

// Signed wraps err as a one-sided sample with the given sign.
func Signed(sign int, err error) error {
	if sign >= 0 {
		sign = 1
	} else {
		sign = -1
	}
	return &SignedError{Sign: sign, Err: err}
}
