package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

const cardColumns = `id, question, answer, category, difficulty, repetitions, easiness_factor,
	interval_days, next_review, last_reviewed, correct_streak, total_attempts,
	correct_attempts, active, created_at, updated_at`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db *sql.DB, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card         domain.Card
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&card.ID,
		&card.Question,
		&card.Answer,
		&card.Category,
		&card.Difficulty,
		&card.Repetitions,
		&card.EasinessFactor,
		&card.Interval,
		&card.NextReview,
		&lastReviewed,
		&card.CorrectStreak,
		&card.TotalAttempts,
		&card.CorrectAttempts,
		&card.Active,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		card.LastReviewed = &t
	}
	card.NextReview = card.NextReview.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()
	return &card, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create implements store.CardStore.Create
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return err
	}

	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.Question,
		card.Answer,
		card.Category,
		card.Difficulty,
		card.Repetitions,
		card.EasinessFactor,
		card.Interval,
		card.NextReview,
		nullTime(card.LastReviewed),
		card.CorrectStreak,
		card.TotalAttempts,
		card.CorrectAttempts,
		card.Active,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return MapError(err, "card", "create", store.ErrCardNotFound)
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

// GetByID implements store.CardStore.GetByID
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := getCard(ctx, s.db, id, false)
	if err != nil {
		return nil, MapError(err, "card", "get", store.ErrCardNotFound)
	}
	return card, nil
}

// getCard loads one card through q, locking its row when forUpdate is set.
func getCard(ctx context.Context, q store.DBTX, id uuid.UUID, forUpdate bool) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanCard(q.QueryRowContext(ctx, query, id))
}

// GetMany implements store.CardStore.GetMany
func (s *PostgresCardStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error) {
	if len(ids) == 0 {
		return []*domain.Card{}, nil
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, MapError(err, "card", "get_many", nil)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*domain.Card, len(ids))
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, MapError(err, "card", "get_many", nil)
		}
		byID[card.ID] = card
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "card", "get_many", nil)
	}

	cards := make([]*domain.Card, 0, len(byID))
	for _, id := range ids {
		if card, ok := byID[id]; ok {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// ListIDs implements store.CardStore.ListIDs
func (s *PostgresCardStore) ListIDs(ctx context.Context, category *string) ([]uuid.UUID, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == nil {
		rows, err = s.db.QueryContext(ctx, `SELECT id FROM cards`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT id FROM cards WHERE category = $1`, *category)
	}
	if err != nil {
		return nil, MapError(err, "card", "list", nil)
	}
	return scanIDs(rows, "card")
}

// Update implements store.CardStore.Update. The category index is the
// category column, so moving a card between categories needs no extra work.
func (s *PostgresCardStore) Update(ctx context.Context, id uuid.UUID, fn store.CardMutation) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Card
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := getCard(ctx, tx, id, true)
		if err != nil {
			return MapError(err, "card", "update", store.ErrCardNotFound)
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = current.ID
		if err := next.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cards SET
				question = $2, answer = $3, category = $4, difficulty = $5,
				repetitions = $6, easiness_factor = $7, interval_days = $8,
				next_review = $9, last_reviewed = $10, correct_streak = $11,
				total_attempts = $12, correct_attempts = $13, active = $14,
				updated_at = $15
			WHERE id = $1`,
			next.ID,
			next.Question,
			next.Answer,
			next.Category,
			next.Difficulty,
			next.Repetitions,
			next.EasinessFactor,
			next.Interval,
			next.NextReview,
			nullTime(next.LastReviewed),
			next.CorrectStreak,
			next.TotalAttempts,
			next.CorrectAttempts,
			next.Active,
			next.UpdatedAt,
		)
		if err != nil {
			return MapError(err, "card", "update", store.ErrCardNotFound)
		}

		updated = next
		return nil
	})
	if err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to update card",
				slog.String("error", err.Error()),
				slog.String("card_id", id.String()))
		}
		return nil, err
	}
	return updated, nil
}

// Delete implements store.CardStore.Delete
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err, "card", "delete", store.ErrCardNotFound)
	}
	if err := CheckRowsAffected(result, "card", store.ErrCardNotFound); err != nil {
		return err
	}

	log.Debug("card deleted", slog.String("card_id", id.String()))
	return nil
}

// Categories implements store.CardStore.Categories
func (s *PostgresCardStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM cards ORDER BY category`)
	if err != nil {
		return nil, MapError(err, "card", "categories", nil)
	}
	defer func() { _ = rows.Close() }()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, MapError(err, "card", "categories", nil)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "card", "categories", nil)
	}
	return categories, nil
}

// Count implements store.CardStore.Count
func (s *PostgresCardStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, MapError(err, "card", "count", nil)
	}
	return n, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func scanIDs(rows *sql.Rows, entity string) ([]uuid.UUID, error) {
	defer func() { _ = rows.Close() }()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err, entity, "list", nil)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, entity, "list", nil)
	}
	return ids, nil
}
