package mocks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

// MockCardStore implements store.CardStore in memory.
type MockCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card

	// Err, when set, is returned by every method.
	Err error

	GetManyFn func(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error)
	UpdateFn  func(ctx context.Context, id uuid.UUID, fn store.CardMutation) (*domain.Card, error)

	// UpdateCalls counts Update invocations, including overridden ones.
	UpdateCalls int
}

var _ store.CardStore = (*MockCardStore)(nil)

// NewMockCardStore creates an empty card store.
func NewMockCardStore() *MockCardStore {
	return &MockCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

// Create implements store.CardStore
func (m *MockCardStore) Create(_ context.Context, card *domain.Card) error {
	if m.Err != nil {
		return m.Err
	}
	if err := card.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cards[card.ID]; exists {
		return fmt.Errorf("%w: card %s", store.ErrDuplicate, card.ID)
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// GetByID implements store.CardStore
func (m *MockCardStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return card.Clone(), nil
}

// GetMany implements store.CardStore
func (m *MockCardStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error) {
	if m.GetManyFn != nil {
		return m.GetManyFn(ctx, ids)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cards := make([]*domain.Card, 0, len(ids))
	for _, id := range ids {
		if card, ok := m.cards[id]; ok {
			cards = append(cards, card.Clone())
		}
	}
	return cards, nil
}

// ListIDs implements store.CardStore
func (m *MockCardStore) ListIDs(_ context.Context, category *string) ([]uuid.UUID, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []uuid.UUID{}
	for id, card := range m.cards {
		if category == nil || card.Category == *category {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Update implements store.CardStore
func (m *MockCardStore) Update(ctx context.Context, id uuid.UUID, fn store.CardMutation) (*domain.Card, error) {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, fn)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	if err := next.Validate(); err != nil {
		return nil, err
	}
	m.cards[id] = next
	return next.Clone(), nil
}

// Delete implements store.CardStore
func (m *MockCardStore) Delete(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return store.ErrCardNotFound
	}
	delete(m.cards, id)
	return nil
}

// Categories implements store.CardStore
func (m *MockCardStore) Categories(_ context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	categories := []string{}
	for _, card := range m.cards {
		categories = append(categories, card.Category)
	}
	slices.Sort(categories)
	return slices.Compact(categories), nil
}

// Count implements store.CardStore
func (m *MockCardStore) Count(_ context.Context) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.cards)), nil
}

// Put stores card as-is, bypassing validation. Tests use it to seed state.
func (m *MockCardStore) Put(card *domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = card.Clone()
}
