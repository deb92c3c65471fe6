// Package postgres implements the store interfaces on PostgreSQL through the
// pgx database/sql driver, and ships the goose migrations for its schema.
//
// Read-modify-write operations lock the row with SELECT ... FOR UPDATE inside
// store.RunInTransaction.
package postgres
