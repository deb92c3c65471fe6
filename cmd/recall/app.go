package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-recall/internal/config"
	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/domain/srs"
	"github.com/phrazzld/scry-recall/internal/events"
	"github.com/phrazzld/scry-recall/internal/platform/postgres"
	"github.com/phrazzld/scry-recall/internal/platform/redis"
	"github.com/phrazzld/scry-recall/internal/redact"
	"github.com/phrazzld/scry-recall/internal/service"
	"github.com/phrazzld/scry-recall/internal/service/leaderboard"
	"github.com/phrazzld/scry-recall/internal/service/quiz"
	"github.com/phrazzld/scry-recall/internal/service/stats"
	"github.com/phrazzld/scry-recall/internal/store"
)

// application holds the shared dependencies of a command and releases them
// in cleanup.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Exactly one backend connection is open.
	db    *sql.DB
	redis *goredis.Client

	cardStore        store.CardStore
	sessionStore     store.SessionStore
	leaderboardStore store.LeaderboardStore

	emitter     *events.InMemoryEventEmitter
	srsService  srs.Service
	cards       *service.CardService
	quiz        *quiz.Service
	leaderboard *leaderboard.Service
	stats       *stats.Service
}

// newApplication connects to the configured backend and builds the services.
// With migrate set, pending postgres migrations are applied first.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.openStores(ctx, migrate); err != nil {
		app.cleanup()
		return nil, err
	}

	app.srsService = srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		MinEaseFactor:  cfg.SRS.MinEaseFactor,
		FirstInterval:  cfg.SRS.FirstInterval,
		SecondInterval: cfg.SRS.SecondInterval,
	}))
	app.cards = service.NewCardService(app.cardStore, app.srsService, logger)

	app.leaderboard = leaderboard.NewService(app.leaderboardStore, logger)
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.leaderboard)

	app.quiz = quiz.NewService(app.cards, app.sessionStore, app.emitter, logger,
		quiz.WithScoringPolicy(domain.ScoringPolicy{
			SpeedBonusThreshold: cfg.Quiz.SpeedBonusThreshold(),
			SpeedBonusPoints:    cfg.Quiz.SpeedBonusPoints,
		}))
	app.stats = stats.NewService(app.sessionStore, logger)

	logger.Debug("application initialized",
		slog.String("backend", cfg.Store.Backend),
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.String("database_url", redact.String(cfg.Database.URL)))
	return app, nil
}

func (app *application) openStores(ctx context.Context, migrate bool) error {
	switch app.config.Store.Backend {
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, app.config.Redis)
		if err != nil {
			return err
		}
		app.redis = client

		prefix := app.config.Redis.KeyPrefix
		app.cardStore = redis.NewCardStore(client, prefix, app.logger)
		app.sessionStore = redis.NewSessionStore(client, prefix, app.logger)
		app.leaderboardStore = redis.NewLeaderboardStore(client, prefix, app.logger)

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, app.config.Database.URL)
		if err != nil {
			return err
		}
		app.db = db

		if migrate {
			if err := postgres.Migrate(ctx, db, "up", app.logger); err != nil {
				return err
			}
		}
		app.cardStore = postgres.NewPostgresCardStore(db, app.logger)
		app.sessionStore = postgres.NewPostgresSessionStore(db, app.logger)
		app.leaderboardStore = postgres.NewPostgresLeaderboardStore(db, app.logger)

	default:
		return fmt.Errorf("unsupported store backend %q", app.config.Store.Backend)
	}
	return nil
}

// cleanup closes the backend connection.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
}
