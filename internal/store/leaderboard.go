package store

import (
	"context"

	"github.com/phrazzld/scry-recall/internal/domain"
)

// LeaderboardStore persists per-period scores keyed by user.
//
// Range indexes follow sorted-set semantics: both bounds are inclusive and
// negative values count back from the end (-1 is the last entry).
type LeaderboardStore interface {
	// Increment atomically adds delta to the user's score, creating the entry
	// at zero when absent, and returns the new score.
	Increment(ctx context.Context, period domain.Period, userID string, delta float64) (float64, error)

	// IncrementOnce behaves like Increment but applies at most once per key.
	// It reports whether this call applied the increment.
	IncrementOnce(ctx context.Context, key string, period domain.Period, userID string, delta float64) (bool, error)

	// Range returns entries ordered by ascending score.
	Range(ctx context.Context, period domain.Period, start, stop int64) ([]domain.LeaderboardEntry, error)

	// ReverseRange returns entries ordered by descending score.
	ReverseRange(ctx context.Context, period domain.Period, start, stop int64) ([]domain.LeaderboardEntry, error)

	// Rank returns the user's 0-based position by descending score.
	// Returns ErrLeaderboardEntryNotFound if the user has no entry.
	Rank(ctx context.Context, period domain.Period, userID string) (int64, error)

	// Score returns the user's score.
	// Returns ErrLeaderboardEntryNotFound if the user has no entry.
	Score(ctx context.Context, period domain.Period, userID string) (float64, error)
}

// NormalizeRange resolves sorted-set style bounds against a collection of size
// n. It returns the absolute inclusive bounds and false when the range is empty.
func NormalizeRange(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
