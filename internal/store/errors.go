package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStorage is the kind shared by every backend failure: connection
	// problems, failed transactions and unreadable records.
	ErrStorage = errors.New("storage failure")

	// ErrCorruptRecord is returned when a stored record cannot be decoded.
	ErrCorruptRecord = fmt.Errorf("%w: corrupt record", ErrStorage)

	// ErrConflict is returned when an optimistic update kept losing races
	// and gave up.
	ErrConflict = fmt.Errorf("%w: concurrent modification", ErrStorage)

	// Entity-specific "not found" errors

	// ErrCardNotFound indicates that the requested card does not exist in the store.
	ErrCardNotFound = fmt.Errorf("%w: card", ErrNotFound)

	// ErrSessionNotFound indicates that the requested quiz session does not exist.
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)

	// ErrLeaderboardEntryNotFound indicates that a user has no score in a period.
	ErrLeaderboardEntryNotFound = fmt.Errorf("%w: leaderboard entry", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorageError checks if the error is a backend failure.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

// StoreError is a backend failure with the entity and operation it occurred in.
// It always matches ErrStorage under errors.Is.
type StoreError struct {
	Entity    string // The entity type (e.g., "card", "session")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrStorage.
func (e *StoreError) Is(target error) bool {
	return target == ErrStorage
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
