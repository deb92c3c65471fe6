package domain

import (
	"fmt"
	"time"
)

const periodLayout = "2006-01"

// Period identifies a monthly leaderboard, formatted YYYY-MM.
type Period string

// PeriodOf returns the leaderboard period containing t.
func PeriodOf(t time.Time) Period {
	return Period(t.UTC().Format(periodLayout))
}

// ParsePeriod validates a YYYY-MM period string.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", NewValidationError("period", fmt.Sprintf("%q is not in YYYY-MM form", s), nil)
	}
	return Period(t.Format(periodLayout)), nil
}

func (p Period) String() string {
	return string(p)
}

// LeaderboardEntry is a user's accumulated score within a period.
// Rank is 0-based, counted from the highest score.
type LeaderboardEntry struct {
	Period Period  `json:"period"`
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int64   `json:"rank"`
}
