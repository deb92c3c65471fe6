package redis

import (
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-recall/internal/domain"
)

// keyspace builds every key the stores touch, under a common prefix.
type keyspace struct {
	prefix string
}

func (k keyspace) card(id uuid.UUID) string {
	return k.prefix + "card:" + id.String()
}

func (k keyspace) allCards() string {
	return k.prefix + "cards:all"
}

func (k keyspace) category(name string) string {
	return k.prefix + "category:" + name
}

func (k keyspace) categoryPattern() string {
	return k.prefix + "category:*"
}

func (k keyspace) categoryName(key string) string {
	return strings.TrimPrefix(key, k.prefix+"category:")
}

func (k keyspace) session(id uuid.UUID) string {
	return k.prefix + "session:" + id.String()
}

func (k keyspace) userSessions(userID string) string {
	return k.prefix + "user_sessions:" + userID
}

func (k keyspace) leaderboard(period domain.Period) string {
	return k.prefix + "leaderboard:" + string(period)
}

func (k keyspace) applied(key string) string {
	return k.prefix + "leaderboard_applied:" + key
}
