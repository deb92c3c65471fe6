package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

// SessionStore implements store.SessionStore on Redis.
type SessionStore struct {
	client goredis.UniversalClient
	keys   keyspace
	logger *slog.Logger
}

var _ store.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore storing every key under prefix.
func NewSessionStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *SessionStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		client: client,
		keys:   keyspace{prefix: prefix},
		logger: logger.With(slog.String("component", "redis_session_store")),
	}
}

// Create implements store.SessionStore.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	id := session.ID.String()
	key := s.keys.session(session.ID)
	txf := func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return &errAborted{fmt.Errorf("%w: session %s", store.ErrDuplicate, id)}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, s.keys.userSessions(session.UserID), id)
			return nil
		})
		return err
	}

	if err := watchUpdate(ctx, s.client, "session", "create", txf, key); err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to create session", slog.String("session_id", id), slog.String("error", err.Error()))
		}
		return err
	}
	return nil
}

// GetByID implements store.SessionStore.
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.keys.session(id)).Bytes()
	if isNil(err) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, storeErr("session", "get", err)
	}
	return decode[domain.Session]("session", raw)
}

// GetMany implements store.SessionStore.
func (s *SessionStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Session, error) {
	if len(ids) == 0 {
		return []*domain.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.session(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr("session", "get_many", err)
	}

	sessions := make([]*domain.Session, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		session, err := decode[domain.Session]("session", []byte(str))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Update implements store.SessionStore.
func (s *SessionStore) Update(ctx context.Context, id uuid.UUID, fn store.SessionMutation) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := s.keys.session(id)

	var updated *domain.Session
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if isNil(err) {
			return &errAborted{store.ErrSessionNotFound}
		}
		if err != nil {
			return err
		}

		current, err := decode[domain.Session]("session", raw)
		if err != nil {
			return &errAborted{err}
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return &errAborted{err}
		}
		next.ID = current.ID
		next.UserID = current.UserID
		if err := next.Validate(); err != nil {
			return &errAborted{err}
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return &errAborted{fmt.Errorf("failed to encode session: %w", err)}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = next
		return nil
	}

	if err := watchUpdate(ctx, s.client, "session", "update", txf, key); err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to update session", slog.String("session_id", id.String()), slog.String("error", err.Error()))
		}
		return nil, err
	}
	return updated, nil
}

// ListIDsByUser implements store.SessionStore.
func (s *SessionStore) ListIDsByUser(ctx context.Context, userID string) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, s.keys.userSessions(userID)).Result()
	if err != nil {
		return nil, storeErr("session", "list", err)
	}
	return parseIDs("session", members)
}
