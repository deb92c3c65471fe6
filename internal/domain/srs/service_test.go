package srs_test

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/domain/srs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceUpdate(t *testing.T) {
	t.Parallel()
	svc := srs.NewDefaultService()
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	card, err := domain.NewCard("capital of France?", "Paris", "geo", 2, now)
	require.NoError(t, err)

	t.Run("nil card", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Update(nil, 5, now)
		assert.ErrorIs(t, err, srs.ErrNilCard)
	})

	t.Run("quality out of range", func(t *testing.T) {
		t.Parallel()
		for _, q := range []int{-1, 6} {
			_, err := svc.Update(card, q, now)
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
	})

	t.Run("valid review", func(t *testing.T) {
		t.Parallel()
		next, err := svc.Update(card, 4, now)
		require.NoError(t, err)
		assert.Equal(t, card.ID, next.ID)
		assert.Equal(t, 1, next.Repetitions)
		assert.Equal(t, 0, card.Repetitions)
	})
}

func TestServiceCustomParams(t *testing.T) {
	t.Parallel()
	svc := srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{FirstInterval: 2, SecondInterval: 3}))
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	card, err := domain.NewCard("q", "a", "c", 1, now)
	require.NoError(t, err)

	next, err := svc.Update(card, 4, now)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Interval)

	failed, err := svc.Update(card, 2, now)
	require.NoError(t, err)
	assert.Equal(t, 0, failed.Repetitions)
	assert.Equal(t, domain.DefaultInterval, failed.Interval)
}

// Scheduling and session scoring share one correctness threshold.
func TestServicePassingGradeMatchesSessions(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	for quality := domain.MinQuality; quality <= domain.MaxQuality; quality++ {
		card, err := domain.NewCard("q", "a", "c", 1, now)
		require.NoError(t, err)

		next, err := srs.NewDefaultService().Update(card, quality, now)
		require.NoError(t, err)
		assert.Equal(t, domain.IsCorrect(quality), next.CorrectAttempts == 1, "quality %d", quality)
		assert.Equal(t, domain.IsCorrect(quality), next.Repetitions == 1, "quality %d", quality)
	}
}

func TestIsDue(t *testing.T) {
	t.Parallel()
	review := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	card := &domain.Card{NextReview: review}

	assert.False(t, srs.IsDue(card, review.Add(-time.Second)))
	assert.False(t, srs.IsDue(card, review), "equality is not due")
	assert.True(t, srs.IsDue(card, review.Add(time.Nanosecond)))
	assert.True(t, srs.NewDefaultService().IsDue(card, review.Add(time.Hour)))
}

func TestSuccessRate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, srs.SuccessRate(&domain.Card{}))
	assert.InDelta(t, 0.75, srs.SuccessRate(&domain.Card{TotalAttempts: 4, CorrectAttempts: 3}), 1e-9)
	assert.InDelta(t, 0.5, srs.NewDefaultService().SuccessRate(&domain.Card{TotalAttempts: 2, CorrectAttempts: 1}), 1e-9)
}
