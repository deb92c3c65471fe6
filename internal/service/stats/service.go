// Package stats derives per-user study statistics from stored sessions.
package stats

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/service"
	"github.com/phrazzld/scry-recall/internal/store"
)

// UserStats summarizes every session indexed under a user. Times are in
// milliseconds.
type UserStats struct {
	UserID             string  `json:"user_id"`
	TotalSessions      int     `json:"total_sessions"`
	CompletedSessions  int     `json:"completed_sessions"`
	TotalCards         int     `json:"total_cards"`
	TotalCorrect       int     `json:"total_correct"`
	TotalTime          int64   `json:"total_time_ms"`
	Accuracy           float64 `json:"accuracy"`
	AverageSessionTime int64   `json:"average_session_time_ms"`
}

// Service computes user statistics. It reads every session of the user on
// each call.
type Service struct {
	sessions store.SessionStore
	logger   *slog.Logger
}

// NewService creates a stats Service. It panics if sessions is nil.
func NewService(sessions store.SessionStore, logger *slog.Logger) *Service {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "stats_service")),
	}
}

// UserStats folds the user's sessions into a summary. Only completed
// sessions contribute cards, correct answers and time; the average session
// time divides by every indexed session and truncates to whole milliseconds.
func (s *Service) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("user_id", "cannot be empty", nil)
	}

	ids, err := s.sessions.ListIDsByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list sessions",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, service.NewServiceError("user_stats", "failed to list sessions", err)
	}

	sessions, err := s.sessions.GetMany(ctx, ids)
	if err != nil {
		log.Error("failed to load sessions",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, service.NewServiceError("user_stats", "failed to load sessions", err)
	}
	if missing := len(ids) - len(sessions); missing > 0 {
		log.Warn("indexed sessions without records", slog.Int("count", missing))
	}

	return summarize(userID, sessions, len(ids)), nil
}

// summarize folds sessions into a UserStats. indexed is the number of
// sessions listed for the user, including any whose record is gone.
func summarize(userID string, sessions []*domain.Session, indexed int) *UserStats {
	stats := &UserStats{UserID: userID, TotalSessions: indexed}
	for _, session := range sessions {
		if !session.Completed {
			continue
		}
		stats.CompletedSessions++
		stats.TotalCards += len(session.CardIDs)
		stats.TotalCorrect += session.CorrectCount
		stats.TotalTime += session.TotalTimeSpent
	}

	if stats.TotalCards > 0 {
		stats.Accuracy = float64(stats.TotalCorrect) / float64(stats.TotalCards)
	}
	if stats.TotalSessions > 0 {
		stats.AverageSessionTime = stats.TotalTime / int64(stats.TotalSessions)
	}
	return stats
}
