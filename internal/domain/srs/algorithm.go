package srs

import (
	"time"

	"github.com/phrazzld/scry-recall/internal/domain"
)

// calculateNewEaseFactor applies the SM-2 easiness adjustment for a 0..5 grade.
//
// The adjustment is 0.1 - (5-q)*(0.08 + (5-q)*0.02): a perfect grade adds 0.1,
// a 4 leaves the factor unchanged, and lower grades reduce it progressively.
// The result is floored at params.MinEaseFactor and has no ceiling.
func calculateNewEaseFactor(currentEF float64, quality int, params *Params) float64 {
	miss := float64(domain.MaxQuality - quality)
	newEF := currentEF + 0.1 - miss*(0.08+miss*0.02)

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the number of days until the next review.
//
// Parameters:
//   - currentInterval: the card's interval before this review
//   - repetitions: consecutive correct reviews before this one
//   - easeFactor: the easiness factor before this review's adjustment
//   - quality: the grade, 0..5
//
// A failed review restarts the schedule at one day. Otherwise the first and
// second consecutive successes use the fixed params intervals and later ones
// multiply the previous interval by the easiness factor, rounded half up.
func calculateNewInterval(
	currentInterval int,
	repetitions int,
	easeFactor float64,
	quality int,
	params *Params,
) int {
	if !domain.IsCorrect(quality) {
		return domain.DefaultInterval
	}

	var interval int
	switch repetitions {
	case 0:
		interval = params.FirstInterval
	case 1:
		interval = params.SecondInterval
	default:
		interval = domain.RoundHalfUp(float64(currentInterval) * easeFactor)
	}

	if interval < 1 {
		interval = 1
	}
	return interval
}

// calculateNextCard returns a copy of card with its scheduling state advanced
// by one graded review at time now. The input card is not modified.
func calculateNextCard(card *domain.Card, quality int, now time.Time, params *Params) *domain.Card {
	next := card.Clone()

	reviewed := now
	next.LastReviewed = &reviewed
	next.TotalAttempts++

	next.Interval = calculateNewInterval(card.Interval, card.Repetitions, card.EasinessFactor, quality, params)
	if domain.IsCorrect(quality) {
		next.CorrectAttempts++
		next.CorrectStreak++
		next.Repetitions++
	} else {
		next.CorrectStreak = 0
		next.Repetitions = 0
	}

	next.EasinessFactor = calculateNewEaseFactor(card.EasinessFactor, quality, params)
	next.NextReview = now.AddDate(0, 0, next.Interval)
	next.UpdatedAt = now

	return next
}
