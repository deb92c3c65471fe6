package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phrazzld/scry-recall/internal/domain"
	"github.com/phrazzld/scry-recall/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// MapError maps a database error to the store's error kinds.
//
// sql.ErrNoRows becomes notFound, unique violations become ErrDuplicate and
// constraint violations become validation errors. Anything else is a
// StoreError for the given entity and operation.
func MapError(err error, entity, operation string, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		if notFound == nil {
			notFound = store.ErrNotFound
		}
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, entity, err)
		case foreignKeyViolationCode, checkViolationCode:
			return domain.NewValidationError(pgErr.ConstraintName, "violates a database constraint", err)
		case notNullViolationCode:
			return domain.NewValidationError(pgErr.ColumnName, "cannot be null", err)
		}
	}

	return store.NewStoreError(entity, operation, "database query failed", err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func CheckRowsAffected(result sql.Result, entity string, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError(entity, "rows_affected", "failed to get rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
