package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNewEaseFactor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  float64
		quality  int
		expected float64
	}{
		{"perfect grade adds 0.1", 2.5, 5, 2.6},
		{"grade 4 leaves factor unchanged", 2.5, 4, 2.5},
		{"grade 3 reduces by 0.14", 2.5, 3, 2.36},
		{"grade 2 reduces by 0.32", 2.5, 2, 2.18},
		{"grade 0 reduces by 0.8", 2.5, 0, 1.7},
		{"floor at 1.3", 1.4, 0, 1.3},
		{"no ceiling", 3.5, 5, 3.6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := calculateNewEaseFactor(tc.current, tc.quality, params)
			assert.InDelta(t, tc.expected, got, 1e-9)
		})
	}
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		current  int
		reps     int
		ef       float64
		quality  int
		expected int
	}{
		{"first success", 1, 0, 2.5, 4, 1},
		{"second success", 1, 1, 2.6, 5, 6},
		{"third success multiplies by ease factor", 6, 2, 2.7, 5, 16},
		{"half rounds up", 5, 3, 2.5, 3, 13},
		{"failure resets to one day", 40, 5, 2.5, 2, 1},
		{"blackout resets to one day", 40, 5, 2.5, 0, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := calculateNewInterval(tc.current, tc.reps, tc.ef, tc.quality, params)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCalculateNextCard(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("three perfect reviews", func(t *testing.T) {
		t.Parallel()
		card, err := domain.NewCard("q", "a", "c", 3, start)
		require.NoError(t, err)

		wantEF := []float64{2.6, 2.7, 2.8}
		wantInterval := []int{1, 6, 16}

		now := start
		for i := 0; i < 3; i++ {
			card = calculateNextCard(card, 5, now, params)
			assert.InDelta(t, wantEF[i], card.EasinessFactor, 1e-9, "review %d", i+1)
			assert.Equal(t, wantInterval[i], card.Interval, "review %d", i+1)
			assert.Equal(t, i+1, card.Repetitions)
			assert.Equal(t, now.AddDate(0, 0, wantInterval[i]), card.NextReview)
			now = card.NextReview
		}

		assert.Equal(t, 3, card.TotalAttempts)
		assert.Equal(t, 3, card.CorrectAttempts)
		assert.Equal(t, 3, card.CorrectStreak)
	})

	t.Run("failure resets streak and repetitions", func(t *testing.T) {
		t.Parallel()
		card, err := domain.NewCard("q", "a", "c", 3, start)
		require.NoError(t, err)
		card.Repetitions = 4
		card.CorrectStreak = 4
		card.Interval = 30
		card.TotalAttempts = 4
		card.CorrectAttempts = 4

		now := start.Add(48 * time.Hour)
		next := calculateNextCard(card, 1, now, params)

		assert.Equal(t, 0, next.Repetitions)
		assert.Equal(t, 0, next.CorrectStreak)
		assert.Equal(t, 1, next.Interval)
		assert.Equal(t, 5, next.TotalAttempts)
		assert.Equal(t, 4, next.CorrectAttempts)
		assert.InDelta(t, 1.96, next.EasinessFactor, 1e-9)
		require.NotNil(t, next.LastReviewed)
		assert.Equal(t, now, *next.LastReviewed)
		assert.Equal(t, now.AddDate(0, 0, 1), next.NextReview)
	})

	t.Run("input card is not modified", func(t *testing.T) {
		t.Parallel()
		card, err := domain.NewCard("q", "a", "c", 3, start)
		require.NoError(t, err)

		_ = calculateNextCard(card, 5, start, params)
		assert.Equal(t, 0, card.TotalAttempts)
		assert.Nil(t, card.LastReviewed)
		assert.Equal(t, domain.DefaultEasinessFactor, card.EasinessFactor)
	})
}

func TestCalculateNextCardInvariants(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	card, err := domain.NewCard("q", "a", "c", 3, now)
	require.NoError(t, err)

	// Deterministic mixed grade sequence covering every grade many times.
	for i := 0; i < 500; i++ {
		q := (i*7 + i/3) % 6
		card = calculateNextCard(card, q, now, params)
		now = card.NextReview

		require.GreaterOrEqual(t, card.EasinessFactor, 1.3)
		require.GreaterOrEqual(t, card.Interval, 1)
		require.LessOrEqual(t, card.CorrectAttempts, card.TotalAttempts)
		require.NoError(t, card.Validate())
		if q < 3 {
			require.Equal(t, 0, card.Repetitions)
		}
	}
	assert.Equal(t, 500, card.TotalAttempts)
}
