package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-recall/internal/domain"
)

// CardMutation edits a card in place inside an atomic update. Returning an
// error aborts the update and is passed back to the caller unchanged.
type CardMutation func(card *domain.Card) error

// CardStore defines the interface for card persistence.
//
// A card is indexed twice: under all cards and under its category. Create,
// Update and Delete keep both indexes consistent with the card record.
type CardStore interface {
	// Create saves a new card and adds it to both indexes.
	Create(ctx context.Context, card *domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetMany retrieves the cards that exist among ids, in the order given.
	// Missing ids are skipped.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error)

	// ListIDs returns the ids of all cards, or of one category when category is non-nil.
	ListIDs(ctx context.Context, category *string) ([]uuid.UUID, error)

	// Update atomically applies fn to the stored card and persists the result.
	// The card id cannot be changed. When the category changes the card is
	// moved between category indexes in the same atomic step.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, id uuid.UUID, fn CardMutation) (*domain.Card, error)

	// Delete removes the card and both of its index entries.
	// Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Categories lists the categories that currently contain at least one card.
	Categories(ctx context.Context) ([]string, error)

	// Count returns the number of stored cards.
	Count(ctx context.Context) (int64, error)
}
