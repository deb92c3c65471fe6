package testdb

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-recall/internal/platform/postgres"
)

// TestTimeout bounds connection setup and cleanup for test databases.
const TestTimeout = 10 * time.Second

var urlEnvVars = []string{"DATABASE_URL", "SCRY_TEST_DB_URL"}

// tables lists every table the migrations create, in truncation order.
var tables = []string{"leaderboard_applied_increments", "leaderboard_scores", "quiz_sessions", "cards"}

// GetTestDatabaseURL returns the first non-empty database URL variable.
func GetTestDatabaseURL() string {
	for _, name := range urlEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// Open returns a migrated database, or skips t when none is configured.
// All tables are emptied before the test runs and again when it finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL or SCRY_TEST_DB_URL not set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, url)
	require.NoError(t, err, "failed to connect to test database")

	logger := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	require.NoError(t, postgres.Migrate(ctx, db, "up", logger), "failed to migrate test database")

	Truncate(t, db)
	t.Cleanup(func() {
		Truncate(t, db)
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})
	return db
}

// Truncate empties every application table.
func Truncate(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	for _, table := range tables {
		_, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err, "failed to truncate %s", table)
	}
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
