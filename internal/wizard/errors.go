package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for events the current step does not accept.
	ErrInvalidTransition = errors.New("wizard: invalid transition")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("wizard: validation failed")
	// ErrBadgeUnavailable is returned when the session has no usable email
	// or no portrait yet.
	ErrBadgeUnavailable = errors.New("wizard: badge unavailable")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wizard: session closed")
)

// ValidationError reports input a data-collection step refused.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalidTransition(ev Event, step Step) error {
	return fmt.Errorf("%w: %s in step %s", ErrInvalidTransition, ev.eventName(), step)
}
