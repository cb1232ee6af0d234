package core

import "errors"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
)

// ValidationError reports split data that fails its variant's mathematical
// precondition (percentages not summing to 100, exact shares not summing to
// the total, a zero total weight). It is returned by CalculateShares before
// any balance is mutated and is never silently corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid split: " + e.Reason
}

func validationErr(reason string) error {
	return &ValidationError{Reason: reason}
}
