package mutex

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout matches any *TimeoutError via errors.Is.
	ErrTimeout = errors.New("lock wait timed out")
	// ErrNotHeld is returned when releasing a lock this Locker does not hold.
	ErrNotHeld = errors.New("lock not held")
	// ErrAlreadyHeld is returned when a Locker is asked to lock twice.
	ErrAlreadyHeld = errors.New("lock already held by this locker")
	// ErrOwnershipLost means the marker was removed or replaced while held.
	ErrOwnershipLost = errors.New("lock ownership lost")
)

// TimeoutError reports that a lock could not be acquired within the allowed wait.
type TimeoutError struct {
	Name   string
	Path   string
	Waited time.Duration
	// Ownerless is set when the dir marker blocking the wait has no owner
	// record, so neither its holder nor its liveness is known.
	Ownerless bool
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("lock %q (%s) not acquired after %s", e.Name, e.Path, e.Waited.Round(time.Millisecond))
	if e.Ownerless {
		msg += "; the marker has no owner record"
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ErrorKind classifies the error for callers that map failures to statuses.
func (e *TimeoutError) ErrorKind() string {
	return "lock_timeout"
}
