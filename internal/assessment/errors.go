package assessment

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("assessment: validation failed")
	// ErrInvalidOption matches every *InvalidOptionError.
	ErrInvalidOption = errors.New("assessment: invalid option")
	// ErrIllegalTransition matches every *IllegalTransitionError.
	ErrIllegalTransition = errors.New("assessment: illegal transition")
)

// ValidationError reports a missing or malformed identity field at start.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("assessment: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidOptionError reports an option id the current question does not offer.
type InvalidOptionError struct {
	PhaseID    int
	QuestionID string
	OptionID   string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("assessment: option %q is not offered by question %s of phase %d", e.OptionID, e.QuestionID, e.PhaseID)
}

// Is reports whether target is ErrInvalidOption.
func (e *InvalidOptionError) Is(target error) bool {
	return target == ErrInvalidOption
}

// IllegalTransitionError reports an operation that the current position does
// not allow.
type IllegalTransitionError struct {
	Op     string
	Stage  Stage
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("assessment: cannot %s while %s: %s", e.Op, e.Stage, e.Reason)
}

// Is reports whether target is ErrIllegalTransition.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}
