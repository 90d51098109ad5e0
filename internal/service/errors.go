package service

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when an operation is attempted outside its
// legal attempt state, e.g. recording an answer on a submitted attempt.
// It is never retried.
var ErrInvalidState = errors.New("operation not allowed in the attempt's current state")

// VersionConflictError rejects a stale grading write. It carries the version
// currently stored so the caller can reload and decide whether to overwrite;
// it must never be silently retried.
type VersionConflictError struct {
	AttemptID      uint
	CurrentVersion int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("grading version conflict on attempt %d: stored version is %d", e.AttemptID, e.CurrentVersion)
}
