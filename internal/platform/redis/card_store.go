package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

// CardStore implements store.CardStore on Redis.
type CardStore struct {
	client goredis.UniversalClient
	keys   keyspace
	logger *slog.Logger
}

var _ store.CardStore = (*CardStore)(nil)

// NewCardStore creates a CardStore storing every key under prefix.
func NewCardStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *CardStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardStore{
		client: client,
		keys:   keyspace{prefix: prefix},
		logger: logger.With(slog.String("component", "redis_card_store")),
	}
}

// Create implements store.CardStore.
func (s *CardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}

	id := card.ID.String()
	key := s.keys.card(card.ID)
	txf := func(tx *goredis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return &errAborted{fmt.Errorf("%w: card %s", store.ErrDuplicate, id)}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			pipe.SAdd(ctx, s.keys.allCards(), id)
			pipe.SAdd(ctx, s.keys.category(card.Category), id)
			return nil
		})
		return err
	}

	if err := watchUpdate(ctx, s.client, "card", "create", txf, key); err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to create card", slog.String("card_id", id), slog.String("error", err.Error()))
		}
		return err
	}

	log.Debug("card created", slog.String("card_id", id), slog.String("category", card.Category))
	return nil
}

// GetByID implements store.CardStore.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	raw, err := s.client.Get(ctx, s.keys.card(id)).Bytes()
	if isNil(err) {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		return nil, storeErr("card", "get", err)
	}
	return decode[domain.Card]("card", raw)
}

// GetMany implements store.CardStore.
func (s *CardStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]*domain.Card, error) {
	if len(ids) == 0 {
		return []*domain.Card{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.card(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr("card", "get_many", err)
	}

	cards := make([]*domain.Card, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		card, err := decode[domain.Card]("card", []byte(str))
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// ListIDs implements store.CardStore.
func (s *CardStore) ListIDs(ctx context.Context, category *string) ([]uuid.UUID, error) {
	key := s.keys.allCards()
	if category != nil {
		key = s.keys.category(*category)
	}

	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr("card", "list", err)
	}
	return parseIDs("card", members)
}

// Update implements store.CardStore.
func (s *CardStore) Update(ctx context.Context, id uuid.UUID, fn store.CardMutation) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := s.keys.card(id)

	var updated *domain.Card
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if isNil(err) {
			return &errAborted{store.ErrCardNotFound}
		}
		if err != nil {
			return err
		}

		current, err := decode[domain.Card]("card", raw)
		if err != nil {
			return &errAborted{err}
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return &errAborted{err}
		}
		next.ID = current.ID
		if err := next.Validate(); err != nil {
			return &errAborted{err}
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return &errAborted{fmt.Errorf("failed to encode card: %w", err)}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if next.Category != current.Category {
				pipe.SRem(ctx, s.keys.category(current.Category), id.String())
				pipe.SAdd(ctx, s.keys.category(next.Category), id.String())
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = next
		return nil
	}

	if err := watchUpdate(ctx, s.client, "card", "update", txf, key); err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to update card", slog.String("card_id", id.String()), slog.String("error", err.Error()))
		}
		return nil, err
	}
	return updated, nil
}

// Delete implements store.CardStore.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := s.keys.card(id)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if isNil(err) {
			return &errAborted{store.ErrCardNotFound}
		}
		if err != nil {
			return err
		}

		// A record that no longer decodes is still removed from the all-cards index.
		category := ""
		if card, decodeErr := decode[domain.Card]("card", raw); decodeErr == nil {
			category = card.Category
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.keys.allCards(), id.String())
			if category != "" {
				pipe.SRem(ctx, s.keys.category(category), id.String())
			}
			return nil
		})
		return err
	}

	if err := watchUpdate(ctx, s.client, "card", "delete", txf, key); err != nil {
		if store.IsStorageError(err) {
			log.Error("failed to delete card", slog.String("card_id", id.String()), slog.String("error", err.Error()))
		}
		return err
	}

	log.Debug("card deleted", slog.String("card_id", id.String()))
	return nil
}

// Categories implements store.CardStore. Redis drops empty sets, so every
// category key found holds at least one card.
func (s *CardStore) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	iter := s.client.Scan(ctx, 0, s.keys.categoryPattern(), 100).Iterator()
	for iter.Next(ctx) {
		categories = append(categories, s.keys.categoryName(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("card", "categories", err)
	}

	slices.Sort(categories)
	return slices.Compact(categories), nil
}

// Count implements store.CardStore.
func (s *CardStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.keys.allCards()).Result()
	if err != nil {
		return 0, storeErr("card", "count", err)
	}
	return n, nil
}
