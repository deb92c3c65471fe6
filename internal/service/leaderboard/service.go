// Package leaderboard aggregates completed session scores into per-month
// rankings.
package leaderboard

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/events"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/service"
	"github.com/phrazzld/scry-recall/internal/store"
)

// Service reads and updates leaderboards. It also handles session.completed
// events by crediting the session score exactly once.
type Service struct {
	store  store.LeaderboardStore
	logger *slog.Logger
}

var _ events.EventHandler = (*Service)(nil)

// NewService creates a leaderboard Service. It panics if lb is nil.
func NewService(lb store.LeaderboardStore, logger *slog.Logger) *Service {
	if lb == nil {
		panic("leaderboard store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  lb,
		logger: logger.With(slog.String("component", "leaderboard_service")),
	}
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "cannot be empty", nil)
	}
	return nil
}

// Increment adds delta to the user's score for period and returns the total.
func (s *Service) Increment(ctx context.Context, period domain.Period, userID string, delta float64) (float64, error) {
	if err := validateUser(userID); err != nil {
		return 0, err
	}

	score, err := s.store.Increment(ctx, period, userID, delta)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment score",
			slog.String("error", err.Error()),
			slog.String("period", period.String()),
			slog.String("user_id", userID))
		return 0, service.NewServiceError("increment", "failed to update score", err)
	}
	return score, nil
}

// IncrementOnce adds delta unless an increment with the same key was already
// applied. It reports whether this call changed the score.
func (s *Service) IncrementOnce(
	ctx context.Context,
	key string,
	period domain.Period,
	userID string,
	delta float64,
) (bool, error) {
	if err := validateUser(userID); err != nil {
		return false, err
	}
	if strings.TrimSpace(key) == "" {
		return false, domain.NewValidationError("key", "cannot be empty", nil)
	}

	applied, err := s.store.IncrementOnce(ctx, key, period, userID, delta)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to apply score",
			slog.String("error", err.Error()),
			slog.String("key", key),
			slog.String("user_id", userID))
		return false, service.NewServiceError("increment_once", "failed to update score", err)
	}
	return applied, nil
}

// Range returns entries between start and stop by ascending score. Both
// bounds are inclusive and negative indexes count from the end.
func (s *Service) Range(ctx context.Context, period domain.Period, start, stop int64) ([]domain.LeaderboardEntry, error) {
	entries, err := s.store.Range(ctx, period, start, stop)
	if err != nil {
		return nil, s.rangeError(ctx, "range", period, err)
	}
	return entries, nil
}

// ReverseRange is Range by descending score.
func (s *Service) ReverseRange(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	entries, err := s.store.ReverseRange(ctx, period, start, stop)
	if err != nil {
		return nil, s.rangeError(ctx, "reverse_range", period, err)
	}
	return entries, nil
}

// Top returns the n best entries of period.
func (s *Service) Top(ctx context.Context, period domain.Period, n int) ([]domain.LeaderboardEntry, error) {
	if n < 0 {
		return nil, domain.NewValidationError("limit", "cannot be negative", nil)
	}
	if n == 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.ReverseRange(ctx, period, 0, int64(n)-1)
}

func (s *Service) rangeError(ctx context.Context, operation string, period domain.Period, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to read leaderboard",
		slog.String("error", err.Error()),
		slog.String("period", period.String()))
	return service.NewServiceError(operation, "failed to read leaderboard", err)
}

// Rank returns the user's 0-based position by descending score.
func (s *Service) Rank(ctx context.Context, period domain.Period, userID string) (int64, error) {
	rank, err := s.store.Rank(ctx, period, userID)
	if err != nil {
		return 0, s.lookupError(ctx, "rank", period, userID, err)
	}
	return rank, nil
}

// Score returns the user's total for period.
func (s *Service) Score(ctx context.Context, period domain.Period, userID string) (float64, error) {
	score, err := s.store.Score(ctx, period, userID)
	if err != nil {
		return 0, s.lookupError(ctx, "score", period, userID, err)
	}
	return score, nil
}

func (s *Service) lookupError(ctx context.Context, operation string, period domain.Period, userID string, err error) error {
	if !store.IsNotFoundError(err) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to look up leaderboard entry",
			slog.String("error", err.Error()),
			slog.String("period", period.String()),
			slog.String("user_id", userID))
	}
	return service.NewServiceError(operation, "failed to look up entry", err)
}

// HandleEvent credits a completed session's score to its user, keyed by the
// session id so redelivered events are not counted twice. Other event types
// are ignored.
func (s *Service) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeSessionCompleted {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var payload events.SessionCompletedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("failed to decode session completion",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return domain.NewValidationError("payload", "malformed session.completed event", err)
	}

	applied, err := s.IncrementOnce(ctx, payload.SessionID.String(), payload.Period,
		payload.UserID, float64(payload.Score))
	if err != nil {
		return err
	}

	log.Info("session score recorded",
		slog.String("session_id", payload.SessionID.String()),
		slog.String("user_id", payload.UserID),
		slog.String("period", payload.Period.String()),
		slog.Int("score", payload.Score),
		slog.Bool("applied", applied))
	return nil
}
