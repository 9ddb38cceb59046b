package rwlock

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation is matched by every error reporting a misuse of
	// the lock, such as releasing something the caller does not hold.
	ErrProtocolViolation = errors.New("rwlock: protocol violation")

	// ErrCancelled is returned when a lock call is abandoned before it was
	// granted. The returned error also wraps the context error.
	ErrCancelled = errors.New("rwlock: acquisition cancelled")
)

// ViolationError describes a protocol violation.
type ViolationError struct {
	Op     string
	Caller Caller
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("rwlock: %s by %s: %s", e.Op, e.Caller, e.Reason)
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

func violation(op string, c Caller, reason string) error {
	return &ViolationError{Op: op, Caller: c, Reason: reason}
}

func cancelled(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrCancelled, op, cause)
}
