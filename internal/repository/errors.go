package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrStaleVersion indicates an optimistic lock check failed because the row changed.
	ErrStaleVersion = errors.New("repository: stale version")
	// ErrCapacityReached indicates an event already holds its maximum registrations.
	ErrCapacityReached = errors.New("repository: capacity reached")
	// ErrReferenced indicates a delete was refused because other rows still reference the record.
	ErrReferenced = errors.New("repository: still referenced")
)

// DuplicateError records which unique constraint rejected a write.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("repository: duplicate (%s)", e.Constraint)
}

// Unwrap makes errors.Is(err, ErrDuplicate) succeed.
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// ConstraintOf returns the unique constraint named by err, if any.
func ConstraintOf(err error) string {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Constraint
	}
	return ""
}
