package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

const sessionColumns = `id, user_id, category, session_type, start_time, end_time, card_ids,
	responses, current_index, correct_count, incorrect_count, completed, score, total_time_spent`

// PostgresSessionStore implements store.SessionStore on PostgreSQL. The card
// queue and responses are stored as JSONB arrays.
type PostgresSessionStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
func NewPostgresSessionStore(db *sql.DB, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s         domain.Session
		category  sql.NullString
		endTime   sql.NullTime
		cardIDs   []byte
		responses []byte
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&category,
		&s.Type,
		&s.StartTime,
		&endTime,
		&cardIDs,
		&responses,
		&s.CurrentIndex,
		&s.CorrectCount,
		&s.IncorrectCount,
		&s.Completed,
		&s.Score,
		&s.TotalTimeSpent,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		c := category.String
		s.Category = &c
	}
	s.StartTime = s.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		s.EndTime = &t
	}
	if err := json.Unmarshal(cardIDs, &s.CardIDs); err != nil {
		return nil, fmt.Errorf("%w: session %s card_ids: %v", store.ErrCorruptRecord, s.ID, err)
	}
	if err := json.Unmarshal(responses, &s.Responses); err != nil {
		return nil, fmt.Errorf("%w: session %s responses: %v", store.ErrCorruptRecord, s.ID, err)
	}
	if s.Responses == nil {
		s.Responses = []int{}
	}
	return &s, nil
}

// sessionArgs encodes the mutable columns in the order $2..$14 of sessionColumns.
func sessionArgs(s *domain.Session) ([]any, error) {
	cardIDs, err := json.Marshal(s.CardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode card ids: %w", err)
	}
	responses, err := json.Marshal(s.Responses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode responses: %w", err)
	}

	var category sql.NullString
	if s.Category != nil {
		category = sql.NullString{String: *s.Category, Valid: true}
	}

	return []any{
		s.ID,
		s.UserID,
		category,
		string(s.Type),
		s.StartTime,
		nullTime(s.EndTime),
		string(cardIDs),
		string(responses),
		s.CurrentIndex,
		s.CorrectCount,
		s.IncorrectCount,
		s.Completed,
		s.Score,
		s.TotalTimeSpent,
	}, nil
}

// Create implements store.SessionStore.Create. The user index is the user_id column.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		return err
	}
	args, err := sessionArgs(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO quiz_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err, "session", "create", store.ErrSessionNotFound)
	}
	return nil
}

// GetByID implements store.SessionStore.GetByID
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	session, err := getSession(ctx, s.db, id, false)
	if err != nil {
		return nil, MapError(err, "session", "get", store.ErrSessionNotFound)
	}
	return session, nil
}

func getSession(ctx context.Context, q store.DBTX, id uuid.UUID, forUpdate bool) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM quiz_sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanSession(q.QueryRowContext(ctx, query, id))
}

// GetMany implements store.SessionStore.GetMany
func (s *PostgresSessionStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Session, error) {
	if len(ids) == 0 {
		return []*domain.Session{}, nil
	}

	query := `SELECT ` + sessionColumns + ` FROM quiz_sessions WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, MapError(err, "session", "get_many", nil)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*domain.Session, len(ids))
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, MapError(err, "session", "get_many", nil)
		}
		byID[session.ID] = session
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err, "session", "get_many", nil)
	}

	sessions := make([]*domain.Session, 0, len(byID))
	for _, id := range ids {
		if session, ok := byID[id]; ok {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// Update implements store.SessionStore.Update
func (s *PostgresSessionStore) Update(
	ctx context.Context,
	id uuid.UUID,
	fn store.SessionMutation,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Session
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := getSession(ctx, tx, id, true)
		if err != nil {
			return MapError(err, "session", "update", store.ErrSessionNotFound)
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.UserID = current.UserID
		if err := next.Validate(); err != nil {
			return err
		}

		args, err := sessionArgs(next)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE quiz_sessions SET
				user_id = $2, category = $3, session_type = $4, start_time = $5,
				end_time = $6, card_ids = $7::jsonb, responses = $8::jsonb,
				current_index = $9, correct_count = $10, incorrect_count = $11,
				completed = $12, score = $13, total_time_spent = $14
			WHERE id = $1`, args...)
		if err != nil {
			return MapError(err, "session", "update", store.ErrSessionNotFound)
		}

		updated = next
		return nil
	})
	if err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to update session",
				slog.String("error", err.Error()),
				slog.String("session_id", id.String()))
		}
		return nil, err
	}
	return updated, nil
}

// ListIDsByUser implements store.SessionStore.ListIDsByUser
func (s *PostgresSessionStore) ListIDsByUser(ctx context.Context, userID string) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM quiz_sessions WHERE user_id = $1 ORDER BY start_time, id`, userID)
	if err != nil {
		return nil, MapError(err, "session", "list", nil)
	}
	return scanIDs(rows, "session")
}
