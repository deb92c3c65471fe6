// Package testdb provides helpers for tests that need a real PostgreSQL
// database.
//
// Tests opt in by setting DATABASE_URL (or SCRY_TEST_DB_URL) and running with
// the integration build tag:
//
//	DATABASE_URL=postgres://... go test -tags=integration ./...
//
// Open skips the calling test when no URL is configured, applies the embedded
// migrations and truncates the schema's tables when the test finishes.
package testdb
