package tempo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOwner  = errors.New("invalid owner")
	ErrInvalidBubble = errors.New("invalid bubble")
	// ErrInsufficientEnergy is never returned from the core itself; energy
	// gated calls report a bool. Hosts use it to surface the soft failure.
	ErrInsufficientEnergy = errors.New("insufficient energy")
)

// InvalidOwnerError reports a rejected registration.
type InvalidOwnerError struct {
	Reason string
}

func (e *InvalidOwnerError) Error() string {
	return fmt.Sprintf("invalid owner: %s", e.Reason)
}

func (e *InvalidOwnerError) Unwrap() error { return ErrInvalidOwner }

// InvalidBubbleError reports a rejected bubble.
type InvalidBubbleError struct {
	Radius float64
}

func (e *InvalidBubbleError) Error() string {
	return fmt.Sprintf("invalid bubble: radius %g must be positive", e.Radius)
}

func (e *InvalidBubbleError) Unwrap() error { return ErrInvalidBubble }
