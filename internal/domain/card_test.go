package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		card, err := domain.NewCard("2+2?", "4", "math", 1, now)
		require.NoError(t, err)

		assert.NotEqual(t, "", card.ID.String())
		assert.Equal(t, domain.DefaultEasinessFactor, card.EasinessFactor)
		assert.Equal(t, 1, card.Interval)
		assert.Equal(t, 0, card.Repetitions)
		assert.Equal(t, now, card.NextReview)
		assert.Nil(t, card.LastReviewed)
		assert.True(t, card.Active)
	})

	tests := []struct {
		name       string
		question   string
		answer     string
		category   string
		difficulty int
		field      string
	}{
		{"blank question", "  ", "a", "c", 3, "question"},
		{"blank answer", "q", "", "c", 3, "answer"},
		{"blank category", "q", "a", "\t", 3, "category"},
		{"difficulty too low", "q", "a", "c", 0, "difficulty"},
		{"difficulty too high", "q", "a", "c", 6, "difficulty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := domain.NewCard(tc.question, tc.answer, tc.category, tc.difficulty, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCardEdit(t *testing.T) {
	t.Parallel()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	card, err := domain.NewCard("q", "a", "math", 2, created)
	require.NoError(t, err)
	card.Repetitions = 3
	card.EasinessFactor = 2.1
	card.Interval = 12

	require.NoError(t, card.Edit("q2", "a2", "physics", 4, later))
	assert.Equal(t, "q2", card.Question)
	assert.Equal(t, "physics", card.Category)
	assert.Equal(t, later, card.UpdatedAt)
	assert.Equal(t, 3, card.Repetitions)
	assert.Equal(t, 2.1, card.EasinessFactor)
	assert.Equal(t, 12, card.Interval)

	err = card.Edit("", "a3", "chem", 4, later.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "q2", card.Question, "invalid edit must leave the card unchanged")
	assert.Equal(t, "physics", card.Category)
	assert.Equal(t, later, card.UpdatedAt)
}

func TestCardClone(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	card, err := domain.NewCard("q", "a", "c", 1, now)
	require.NoError(t, err)
	card.LastReviewed = &now

	cp := card.Clone()
	later := now.Add(time.Hour)
	*cp.LastReviewed = later

	assert.Equal(t, now, *card.LastReviewed)
}

func TestValidateQuality(t *testing.T) {
	t.Parallel()
	for q := 0; q <= 5; q++ {
		assert.NoError(t, domain.ValidateQuality(q))
	}
	for _, q := range []int{-1, 6, 100} {
		err := domain.ValidateQuality(q)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrInvalidQuality)
	}
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{2.5, 3},
		{16.2, 16},
		{66.666, 67},
		{74.9, 75},
		{15.5, 16},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, domain.RoundHalfUp(tc.in), "RoundHalfUp(%v)", tc.in)
	}
}
