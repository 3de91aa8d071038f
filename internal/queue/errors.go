package queue

import (
	"errors"
	"fmt"

	"stockmeta/internal/services"
)

var (
	// ErrNotFound reports a transition on an item that no longer exists.
	ErrNotFound = fmt.Errorf("queue item %w", services.ErrNotFound)
	// ErrInvalidTransition reports a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

func transitionError(id string, from, to Status) error {
	return fmt.Errorf("%w: item %s cannot move from %s to %s", ErrInvalidTransition, id, from, to)
}
