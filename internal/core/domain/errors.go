package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrPersistence         = errors.New("persistence failure")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError reports bad caller input. It is returned before any ledger mutation.
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

// NotFoundError reports an operation against a key or location with no entry.
// Item is empty when a whole location was targeted.
type NotFoundError struct {
	Location string
	Item     string
}

func (e *NotFoundError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("freezer %s has no entries", e.Location)
	}
	return fmt.Sprintf("%s not found in freezer %s", e.Item, e.Location)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError reports a backing store that exists but cannot be read or written.
// A store that does not exist yet is not an error.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
