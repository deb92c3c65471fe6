package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestNewSession(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("copies queue", func(t *testing.T) {
		t.Parallel()
		ids := newIDs(3)
		s, err := domain.NewSession("alice", nil, domain.SessionTypeReview, ids, now)
		require.NoError(t, err)

		ids[0] = uuid.Nil
		assert.NotEqual(t, uuid.Nil, s.CardIDs[0])
		assert.False(t, s.Completed)
		assert.Equal(t, 0, s.CurrentIndex)
		assert.Empty(t, s.Responses)
		assert.Nil(t, s.EndTime)
	})

	t.Run("empty queue completes immediately", func(t *testing.T) {
		t.Parallel()
		s, err := domain.NewSession("alice", nil, domain.SessionTypeNew, nil, now)
		require.NoError(t, err)

		assert.True(t, s.Completed)
		require.NotNil(t, s.EndTime)
		assert.Equal(t, now, *s.EndTime)
		assert.Equal(t, 0, s.Score)
		assert.Equal(t, int64(0), s.TotalTimeSpent)

		_, ok := s.CurrentCardID()
		assert.False(t, ok)
	})

	t.Run("rejects blank user", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewSession(" ", nil, domain.SessionTypeNew, newIDs(1), now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewSession("alice", nil, domain.SessionType("cram"), newIDs(1), now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		_, err := domain.NewSession("alice", nil, domain.SessionTypeNew, []uuid.UUID{id, id}, now)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestParseSessionType(t *testing.T) {
	t.Parallel()
	got, err := domain.ParseSessionType(" Mixed ")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionTypeMixed, got)

	_, err = domain.ParseSessionType("cram")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionRecordResponse(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := domain.DefaultScoringPolicy()

	tests := []struct {
		name      string
		grades    []int
		elapsed   time.Duration
		correct   int
		incorrect int
		score     int
	}{
		{"fast session earns bonus", []int{5, 5, 2, 4}, 2 * time.Minute, 3, 1, 85},
		{"slow session has no bonus", []int{5, 5, 2, 4}, 6 * time.Minute, 3, 1, 75},
		{"exactly five minutes has no bonus", []int{5}, 5 * time.Minute, 1, 0, 100},
		{"thirds round half up", []int{5, 1, 4}, 10 * time.Minute, 2, 1, 67},
		{"all wrong", []int{0, 2}, time.Minute, 0, 2, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := domain.NewSession("alice", nil, domain.SessionTypeMixed, newIDs(len(tc.grades)), start)
			require.NoError(t, err)

			for i, q := range tc.grades {
				now := start.Add(tc.elapsed * time.Duration(i+1) / time.Duration(len(tc.grades)))
				done, err := s.RecordResponse(q, now, policy)
				require.NoError(t, err)
				assert.Equal(t, i == len(tc.grades)-1, done)
				assert.Len(t, s.Responses, s.CurrentIndex)
			}

			assert.True(t, s.Completed)
			assert.Equal(t, tc.correct, s.CorrectCount)
			assert.Equal(t, tc.incorrect, s.IncorrectCount)
			assert.Equal(t, tc.grades, s.Responses)
			assert.Equal(t, tc.elapsed.Milliseconds(), s.TotalTimeSpent)
			assert.Equal(t, tc.score, s.Score)
			require.NotNil(t, s.EndTime)
			assert.Equal(t, start.Add(tc.elapsed), *s.EndTime)
		})
	}
}

func TestSessionRecordResponseErrors(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	s, err := domain.NewSession("bob", nil, domain.SessionTypeReview, newIDs(1), now)
	require.NoError(t, err)

	_, err = s.RecordResponse(7, now, domain.DefaultScoringPolicy())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, s.CurrentIndex, "invalid grade must not advance the session")

	_, err = s.RecordResponse(4, now, domain.DefaultScoringPolicy())
	require.NoError(t, err)

	_, err = s.RecordResponse(4, now, domain.DefaultScoringPolicy())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, s.Responses, 1)
}

func TestSessionProgressAndAccuracy(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	s, err := domain.NewSession("carol", nil, domain.SessionTypeReview, newIDs(3), now)
	require.NoError(t, err)

	assert.Equal(t, 0, s.Progress())
	_, err = s.RecordResponse(5, now, domain.DefaultScoringPolicy())
	require.NoError(t, err)
	assert.Equal(t, 33, s.Progress())
	assert.InDelta(t, 1.0/3.0, s.Accuracy(), 1e-9)

	empty, err := domain.NewSession("carol", nil, domain.SessionTypeReview, nil, now)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Progress())
	assert.Equal(t, 0.0, empty.Accuracy())
}

func TestSessionClone(t *testing.T) {
	t.Parallel()
	cat := "math"
	s, err := domain.NewSession("dave", &cat, domain.SessionTypeReview, newIDs(2), time.Now())
	require.NoError(t, err)

	cp := s.Clone()
	cp.CardIDs[0] = uuid.Nil
	*cp.Category = "art"
	cp.Responses = append(cp.Responses, 3)

	assert.NotEqual(t, uuid.Nil, s.CardIDs[0])
	assert.Equal(t, "math", *s.Category)
	assert.Empty(t, s.Responses)
}
