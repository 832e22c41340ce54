package domain

import (
	"errors"
	"strings"
)

// ErrInvalidParameter is returned when inputs violate a precondition.
// Raised before any simulation work begins.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrNonFiniteResult is returned when a balance overflows to an infinity or NaN.
// Valid parameters can still overflow float64 over enough winning trades.
var ErrNonFiniteResult = errors.New("non-finite result")

// InvalidParameterError lists the violated constraints.
// errors.Is(err, ErrInvalidParameter) reports true for it.
type InvalidParameterError struct {
	Violations []string
}

func (e *InvalidParameterError) Error() string {
	return ErrInvalidParameter.Error() + ": " + strings.Join(e.Violations, "; ")
}

// Is makes the error match ErrInvalidParameter.
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// NewInvalidParameter builds an InvalidParameterError from one or more violations.
func NewInvalidParameter(violations ...string) error {
	return &InvalidParameterError{Violations: violations}
}
