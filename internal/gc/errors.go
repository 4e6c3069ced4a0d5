package gc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Repository when the snapshot row does not exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrConflict is returned by a Repository when the row is no longer in the
	// status the caller read it in.
	ErrConflict = errors.New("snapshot status changed concurrently")

	// ErrInvalidTransition is returned when a status update would move backwards.
	ErrInvalidTransition = errors.New("invalid snapshot status transition")

	// ErrLockInterrupted is returned by a LockRegistry when acquisition is abandoned.
	ErrLockInterrupted = errors.New("lock acquisition interrupted")

	// ErrInvalidLocation is returned by ParseLocation for blank or malformed locations.
	ErrInvalidLocation = errors.New("invalid remote location")
)

// GatewayError wraps a failure reported by a block-tier or object-tier gateway.
type GatewayError struct {
	Tier   string // "block" or "object"
	Op     string
	Target string
	Err    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s tier %s %s: %v", e.Tier, e.Op, e.Target, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
