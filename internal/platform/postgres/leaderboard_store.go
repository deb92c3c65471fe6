package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

const upsertScoreQuery = `
	INSERT INTO leaderboard_scores (period, user_id, score)
	VALUES ($1, $2, $3)
	ON CONFLICT (period, user_id) DO UPDATE
		SET score = leaderboard_scores.score + EXCLUDED.score
	RETURNING score`

// PostgresLeaderboardStore implements store.LeaderboardStore on PostgreSQL.
// Ties in score are ordered by user_id, which is stored with the C collation.
type PostgresLeaderboardStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.LeaderboardStore = (*PostgresLeaderboardStore)(nil)

// NewPostgresLeaderboardStore creates a new PostgreSQL implementation of the LeaderboardStore interface.
func NewPostgresLeaderboardStore(db *sql.DB, logger *slog.Logger) *PostgresLeaderboardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLeaderboardStore{
		db:     db,
		logger: logger.With(slog.String("component", "leaderboard_store")),
	}
}

// Increment implements store.LeaderboardStore.Increment
func (s *PostgresLeaderboardStore) Increment(
	ctx context.Context,
	period domain.Period,
	userID string,
	delta float64,
) (float64, error) {
	var score float64
	err := s.db.QueryRowContext(ctx, upsertScoreQuery, period.String(), userID, delta).Scan(&score)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment score",
			slog.String("period", period.String()),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return 0, MapError(err, "leaderboard", "increment", nil)
	}
	return score, nil
}

// IncrementOnce implements store.LeaderboardStore.IncrementOnce. The marker
// row and the score change commit together.
func (s *PostgresLeaderboardStore) IncrementOnce(
	ctx context.Context,
	key string,
	period domain.Period,
	userID string,
	delta float64,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	applied := false
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboard_applied_increments (idempotency_key, period, user_id, delta)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (idempotency_key) DO NOTHING`,
			key, period.String(), userID, delta)
		if err != nil {
			return MapError(err, "leaderboard", "increment", nil)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return store.NewStoreError("leaderboard", "increment", "failed to get rows affected", err)
		}
		if n == 0 {
			return nil
		}

		var score float64
		if err := tx.QueryRowContext(ctx, upsertScoreQuery, period.String(), userID, delta).Scan(&score); err != nil {
			return MapError(err, "leaderboard", "increment", nil)
		}
		applied = true
		return nil
	})
	if err != nil {
		log.Error("failed to apply idempotent increment",
			slog.String("key", key),
			slog.String("period", period.String()),
			slog.String("error", err.Error()))
		return false, err
	}

	if !applied {
		log.Debug("increment already applied", slog.String("key", key))
	}
	return applied, nil
}

// Range implements store.LeaderboardStore.Range
func (s *PostgresLeaderboardStore) Range(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	return s.rangeEntries(ctx, period, start, stop, false)
}

// ReverseRange implements store.LeaderboardStore.ReverseRange
func (s *PostgresLeaderboardStore) ReverseRange(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	return s.rangeEntries(ctx, period, start, stop, true)
}

func (s *PostgresLeaderboardStore) rangeEntries(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
	descending bool,
) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var n int64
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM leaderboard_scores WHERE period = $1`, period.String()).Scan(&n)
		if err != nil {
			return MapError(err, "leaderboard", "range", nil)
		}

		first, last, ok := store.NormalizeRange(start, stop, n)
		if !ok {
			return nil
		}

		order := `score ASC, user_id ASC`
		if descending {
			order = `score DESC, user_id DESC`
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT user_id, score FROM leaderboard_scores
			WHERE period = $1
			ORDER BY `+order+`
			OFFSET $2 LIMIT $3`,
			period.String(), first, last-first+1)
		if err != nil {
			return MapError(err, "leaderboard", "range", nil)
		}
		defer func() { _ = rows.Close() }()

		pos := first
		for rows.Next() {
			entry := domain.LeaderboardEntry{Period: period}
			if err := rows.Scan(&entry.UserID, &entry.Score); err != nil {
				return MapError(err, "leaderboard", "range", nil)
			}
			entry.Rank = pos
			if !descending {
				entry.Rank = n - 1 - pos
			}
			entries = append(entries, entry)
			pos++
		}
		if err := rows.Err(); err != nil {
			return MapError(err, "leaderboard", "range", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Rank implements store.LeaderboardStore.Rank
func (s *PostgresLeaderboardStore) Rank(ctx context.Context, period domain.Period, userID string) (int64, error) {
	var rank int64
	err := s.db.QueryRowContext(ctx, `
		SELECT (
			SELECT COUNT(*) FROM leaderboard_scores other
			WHERE other.period = me.period
			  AND (other.score > me.score OR (other.score = me.score AND other.user_id > me.user_id))
		)
		FROM leaderboard_scores me
		WHERE me.period = $1 AND me.user_id = $2`,
		period.String(), userID).Scan(&rank)
	if err != nil {
		return 0, MapError(err, "leaderboard", "rank", store.ErrLeaderboardEntryNotFound)
	}
	return rank, nil
}

// Score implements store.LeaderboardStore.Score
func (s *PostgresLeaderboardStore) Score(ctx context.Context, period domain.Period, userID string) (float64, error) {
	var score float64
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM leaderboard_scores WHERE period = $1 AND user_id = $2`,
		period.String(), userID).Scan(&score)
	if err != nil {
		return 0, MapError(err, "leaderboard", "score", store.ErrLeaderboardEntryNotFound)
	}
	return score, nil
}
