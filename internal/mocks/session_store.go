package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

// MockSessionStore implements store.SessionStore in memory.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
	byUser   map[string][]uuid.UUID

	// Err, when set, is returned by every method.
	Err error

	CreateFn func(ctx context.Context, session *domain.Session) error
	UpdateFn func(ctx context.Context, id uuid.UUID, fn store.SessionMutation) (*domain.Session, error)
}

var _ store.SessionStore = (*MockSessionStore)(nil)

// NewMockSessionStore creates an empty session store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[uuid.UUID]*domain.Session),
		byUser:   make(map[string][]uuid.UUID),
	}
}

// Create implements store.SessionStore
func (m *MockSessionStore) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, session)
	}
	if m.Err != nil {
		return m.Err
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session %s", store.ErrDuplicate, session.ID)
	}
	m.sessions[session.ID] = session.Clone()
	m.byUser[session.UserID] = append(m.byUser[session.UserID], session.ID)
	return nil
}

// GetByID implements store.SessionStore
func (m *MockSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// GetMany implements store.SessionStore
func (m *MockSessionStore) GetMany(_ context.Context, ids []uuid.UUID) ([]*domain.Session, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sessions := make([]*domain.Session, 0, len(ids))
	for _, id := range ids {
		if session, ok := m.sessions[id]; ok {
			sessions = append(sessions, session.Clone())
		}
	}
	return sessions, nil
}

// Update implements store.SessionStore
func (m *MockSessionStore) Update(
	ctx context.Context,
	id uuid.UUID,
	fn store.SessionMutation,
) (*domain.Session, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, fn)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.UserID = current.UserID
	if err := next.Validate(); err != nil {
		return nil, err
	}
	m.sessions[id] = next
	return next.Clone(), nil
}

// ListIDsByUser implements store.SessionStore
func (m *MockSessionStore) ListIDsByUser(_ context.Context, userID string) ([]uuid.UUID, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, len(m.byUser[userID]))
	copy(ids, m.byUser[userID])
	return ids, nil
}

// Put stores session as-is and indexes it, bypassing validation.
func (m *MockSessionStore) Put(session *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; !exists {
		m.byUser[session.UserID] = append(m.byUser[session.UserID], session.ID)
	}
	m.sessions[session.ID] = session.Clone()
}

// IndexOnly adds id to the user's index without a session record, which
// models an index entry whose record has gone missing.
func (m *MockSessionStore) IndexOnly(userID string, id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = append(m.byUser[userID], id)
}
