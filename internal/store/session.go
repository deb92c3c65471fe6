package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-recall/internal/domain"
)

// SessionMutation edits a session in place inside an atomic update. Returning
// an error aborts the update and is passed back to the caller unchanged.
type SessionMutation func(session *domain.Session) error

// SessionStore defines the interface for quiz session persistence.
type SessionStore interface {
	// Create saves a new session and indexes it under its user.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// GetMany retrieves the sessions that exist among ids. Missing ids are skipped.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Session, error)

	// Update atomically applies fn to the stored session and persists the result.
	// Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, id uuid.UUID, fn SessionMutation) (*domain.Session, error)

	// ListIDsByUser returns the ids of every session indexed under userID.
	ListIDsByUser(ctx context.Context, userID string) ([]uuid.UUID, error)
}
