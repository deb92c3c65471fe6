package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

const testPeriod = domain.Period("2025-05")

func seedBoard(t *testing.T, s *LeaderboardStore) {
	t.Helper()
	ctx := context.Background()
	for user, score := range map[string]float64{"alice": 85, "bob": 40, "carol": 120, "dave": 40} {
		_, err := s.Increment(ctx, testPeriod, user, score)
		require.NoError(t, err)
	}
}

func users(entries []domain.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestLeaderboardStore_Increment(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewLeaderboardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	score, err := s.Increment(ctx, testPeriod, "alice", 85)
	require.NoError(t, err)
	assert.Equal(t, 85.0, score)

	score, err = s.Increment(ctx, testPeriod, "alice", 15)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)

	got, err := s.Score(ctx, testPeriod, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	_, err = s.Score(ctx, "2025-06", "alice")
	assert.ErrorIs(t, err, store.ErrLeaderboardEntryNotFound)
}

func TestLeaderboardStore_IncrementOnce(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewLeaderboardStore(client, testPrefix, discardLogger())
	ctx := context.Background()

	applied, err := s.IncrementOnce(ctx, "session-1", testPeriod, "alice", 85)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.IncrementOnce(ctx, "session-1", testPeriod, "alice", 85)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = s.IncrementOnce(ctx, "session-2", testPeriod, "alice", 10.5)
	require.NoError(t, err)
	assert.True(t, applied)

	score, err := s.Score(ctx, testPeriod, "alice")
	require.NoError(t, err)
	assert.Equal(t, 95.5, score)
}

func TestLeaderboardStore_Ranges(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewLeaderboardStore(client, testPrefix, discardLogger())
	ctx := context.Background()
	seedBoard(t, s)

	asc, err := s.Range(ctx, testPeriod, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "dave", "alice", "carol"}, users(asc))
	assert.Equal(t, []int64{3, 2, 1, 0}, []int64{asc[0].Rank, asc[1].Rank, asc[2].Rank, asc[3].Rank})
	assert.Equal(t, 40.0, asc[0].Score)

	desc, err := s.ReverseRange(ctx, testPeriod, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "alice"}, users(desc))
	assert.Equal(t, int64(0), desc[0].Rank)
	assert.Equal(t, int64(1), desc[1].Rank)

	tail, err := s.ReverseRange(ctx, testPeriod, -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave", "bob"}, users(tail))
	assert.Equal(t, int64(2), tail[0].Rank)

	none, err := s.Range(ctx, testPeriod, 10, 20)
	require.NoError(t, err)
	assert.Empty(t, none)

	empty, err := s.ReverseRange(ctx, "1999-01", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLeaderboardStore_Rank(t *testing.T) {
	t.Parallel()
	client, _ := newTestClient(t)
	s := NewLeaderboardStore(client, testPrefix, discardLogger())
	ctx := context.Background()
	seedBoard(t, s)

	for user, want := range map[string]int64{"carol": 0, "alice": 1, "dave": 2, "bob": 3} {
		rank, err := s.Rank(ctx, testPeriod, user)
		require.NoError(t, err)
		assert.Equal(t, want, rank, user)
	}

	_, err := s.Rank(ctx, testPeriod, "nobody")
	assert.ErrorIs(t, err, store.ErrLeaderboardEntryNotFound)
}
