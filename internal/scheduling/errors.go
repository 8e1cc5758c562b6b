package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPhysicianUnavailable means the physician is missing, not yet
	// approved, or suspended.
	ErrPhysicianUnavailable = errors.New("physician is not available for booking")

	// ErrServiceUnavailable means the requested service is missing or inactive.
	ErrServiceUnavailable = errors.New("service is not available for booking")

	// ErrSlotNotAvailable covers both a stale read and a lost booking race;
	// the caller cannot distinguish the two and remediates the same way,
	// by re-querying slots and picking another.
	ErrSlotNotAvailable = errors.New("requested slot is not available")

	// ErrBookingInPast means the requested window is before the request time.
	ErrBookingInPast = errors.New("requested slot is in the past")

	// ErrActorNotAllowed means the transition exists but this actor may not
	// trigger it.
	ErrActorNotAllowed = errors.New("actor may not perform this transition")
)

// ValidationError reports malformed booking input: non-positive slot
// duration, inverted windows, missing ids. Never retried automatically.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid booking input: " + strings.Join(e.Problems, "; ")
}

// InvalidTransitionError reports an illegal state-machine edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}
