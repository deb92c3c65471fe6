package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/platform/logger"
	"github.com/phrazzld/scry-recall/internal/store"
)

// incrementOnceScript sets the idempotency marker and bumps the score in one
// atomic step. KEYS: marker, board. ARGV: delta, member, period.
var incrementOnceScript = goredis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[3], 'NX') then
	redis.call('ZINCRBY', KEYS[2], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// LeaderboardStore implements store.LeaderboardStore with one sorted set per period.
type LeaderboardStore struct {
	client goredis.UniversalClient
	keys   keyspace
	logger *slog.Logger
}

var _ store.LeaderboardStore = (*LeaderboardStore)(nil)

// NewLeaderboardStore creates a LeaderboardStore storing every key under prefix.
func NewLeaderboardStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *LeaderboardStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardStore{
		client: client,
		keys:   keyspace{prefix: prefix},
		logger: logger.With(slog.String("component", "redis_leaderboard_store")),
	}
}

// Increment implements store.LeaderboardStore.
func (s *LeaderboardStore) Increment(
	ctx context.Context,
	period domain.Period,
	userID string,
	delta float64,
) (float64, error) {
	score, err := s.client.ZIncrBy(ctx, s.keys.leaderboard(period), delta, userID).Result()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment score",
			slog.String("period", period.String()),
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return 0, storeErr("leaderboard", "increment", err)
	}
	return score, nil
}

// IncrementOnce implements store.LeaderboardStore.
func (s *LeaderboardStore) IncrementOnce(
	ctx context.Context,
	key string,
	period domain.Period,
	userID string,
	delta float64,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	applied, err := incrementOnceScript.Run(
		ctx,
		s.client,
		[]string{s.keys.applied(key), s.keys.leaderboard(period)},
		strconv.FormatFloat(delta, 'f', -1, 64),
		userID,
		period.String(),
	).Int()
	if err != nil {
		log.Error("failed to apply idempotent increment",
			slog.String("key", key),
			slog.String("period", period.String()),
			slog.String("error", err.Error()))
		return false, storeErr("leaderboard", "increment", err)
	}

	if applied == 0 {
		log.Debug("increment already applied", slog.String("key", key))
	}
	return applied == 1, nil
}

// Range implements store.LeaderboardStore.
func (s *LeaderboardStore) Range(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	return s.rangeEntries(ctx, period, start, stop, false)
}

// ReverseRange implements store.LeaderboardStore.
func (s *LeaderboardStore) ReverseRange(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
) ([]domain.LeaderboardEntry, error) {
	return s.rangeEntries(ctx, period, start, stop, true)
}

func (s *LeaderboardStore) rangeEntries(
	ctx context.Context,
	period domain.Period,
	start, stop int64,
	descending bool,
) ([]domain.LeaderboardEntry, error) {
	key := s.keys.leaderboard(period)

	var (
		countCmd *goredis.IntCmd
		rangeCmd *goredis.ZSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		countCmd = pipe.ZCard(ctx, key)
		if descending {
			rangeCmd = pipe.ZRevRangeWithScores(ctx, key, start, stop)
		} else {
			rangeCmd = pipe.ZRangeWithScores(ctx, key, start, stop)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("leaderboard", "range", err)
	}

	entries := []domain.LeaderboardEntry{}
	first, _, ok := store.NormalizeRange(start, stop, countCmd.Val())
	if !ok {
		return entries, nil
	}

	n := countCmd.Val()
	for i, z := range rangeCmd.Val() {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("%w: leaderboard member %v", store.ErrCorruptRecord, z.Member)
		}

		pos := first + int64(i)
		rank := pos
		if !descending {
			rank = n - 1 - pos
		}
		entries = append(entries, domain.LeaderboardEntry{
			Period: period,
			UserID: member,
			Score:  z.Score,
			Rank:   rank,
		})
	}
	return entries, nil
}

// Rank implements store.LeaderboardStore.
func (s *LeaderboardStore) Rank(ctx context.Context, period domain.Period, userID string) (int64, error) {
	rank, err := s.client.ZRevRank(ctx, s.keys.leaderboard(period), userID).Result()
	if isNil(err) {
		return 0, store.ErrLeaderboardEntryNotFound
	}
	if err != nil {
		return 0, storeErr("leaderboard", "rank", err)
	}
	return rank, nil
}

// Score implements store.LeaderboardStore.
func (s *LeaderboardStore) Score(ctx context.Context, period domain.Period, userID string) (float64, error) {
	score, err := s.client.ZScore(ctx, s.keys.leaderboard(period), userID).Result()
	if isNil(err) {
		return 0, store.ErrLeaderboardEntryNotFound
	}
	if err != nil {
		return 0, storeErr("leaderboard", "score", err)
	}
	return score, nil
}
