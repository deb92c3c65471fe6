package mocks

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

// MockLeaderboardStore implements store.LeaderboardStore in memory with the
// same ordering as a sorted set: by score, then by user id.
type MockLeaderboardStore struct {
	mu      sync.Mutex
	boards  map[domain.Period]map[string]float64
	applied map[string]bool

	// Err, when set, is returned by every method.
	Err error

	IncrementOnceFn func(ctx context.Context, key string, period domain.Period, userID string, delta float64) (bool, error)
}

var _ store.LeaderboardStore = (*MockLeaderboardStore)(nil)

// NewMockLeaderboardStore creates an empty leaderboard store.
func NewMockLeaderboardStore() *MockLeaderboardStore {
	return &MockLeaderboardStore{
		boards:  make(map[domain.Period]map[string]float64),
		applied: make(map[string]bool),
	}
}

func (m *MockLeaderboardStore) incrementLocked(period domain.Period, userID string, delta float64) float64 {
	board, ok := m.boards[period]
	if !ok {
		board = make(map[string]float64)
		m.boards[period] = board
	}
	board[userID] += delta
	return board[userID]
}

// Increment implements store.LeaderboardStore
func (m *MockLeaderboardStore) Increment(
	_ context.Context,
	period domain.Period,
	userID string,
	delta float64,
) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrementLocked(period, userID, delta), nil
}

// IncrementOnce implements store.LeaderboardStore
func (m *MockLeaderboardStore) IncrementOnce(
	ctx context.Context,
	key string,
	period domain.Period,
	userID string,
	delta float64,
) (bool, error) {
	if m.IncrementOnceFn != nil {
		return m.IncrementOnceFn(ctx, key, period, userID, delta)
	}
	if m.Err != nil {
		return false, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[key] {
		return false, nil
	}
	m.applied[key] = true
	m.incrementLocked(period, userID, delta)
	return true, nil
}

// sortedLocked returns the period's entries in descending order.
func (m *MockLeaderboardStore) sortedLocked(period domain.Period) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(m.boards[period]))
	for user, score := range m.boards[period] {
		entries = append(entries, domain.LeaderboardEntry{Period: period, UserID: user, Score: score})
	}
	slices.SortFunc(entries, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.UserID, a.UserID)
	})
	for i := range entries {
		entries[i].Rank = int64(i)
	}
	return entries
}

func (m *MockLeaderboardStore) rangeEntries(period domain.Period, start, stop int64, descending bool) []domain.LeaderboardEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.sortedLocked(period)
	if !descending {
		slices.Reverse(entries)
	}
	first, last, ok := store.NormalizeRange(start, stop, int64(len(entries)))
	if !ok {
		return []domain.LeaderboardEntry{}
	}
	return slices.Clone(entries[first : last+1])
}

// Range implements store.LeaderboardStore
func (m *MockLeaderboardStore) Range(
	_ context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.rangeEntries(period, start, stop, false), nil
}

// ReverseRange implements store.LeaderboardStore
func (m *MockLeaderboardStore) ReverseRange(
	_ context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.rangeEntries(period, start, stop, true), nil
}

// Rank implements store.LeaderboardStore
func (m *MockLeaderboardStore) Rank(_ context.Context, period domain.Period, userID string) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.sortedLocked(period) {
		if e.UserID == userID {
			return e.Rank, nil
		}
	}
	return 0, store.ErrLeaderboardEntryNotFound
}

// Score implements store.LeaderboardStore
func (m *MockLeaderboardStore) Score(_ context.Context, period domain.Period, userID string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.boards[period][userID]
	if !ok {
		return 0, store.ErrLeaderboardEntryNotFound
	}
	return score, nil
}
