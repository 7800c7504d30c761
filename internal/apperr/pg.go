package apperr

// Postgres helpers for mapping pgx errors to codes

import (
	stderrs "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation      = "23505"
	pgErrForeignKeyViolation  = "23503"
	pgErrCheckViolation       = "23514"
	pgErrInvalidTextRepr      = "22P02"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrReadOnlySQLTx        = "25006"
	pgErrCannotConnectNow     = "57P03"
	pgErrUndefinedTable       = "42P01"
)

// FromPostgres wraps a pgx error with a mapped code.
// Server-side contention becomes Conflict so the caller can retry.
// Anything that never reached the server is StoreUnavailable.
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if stderrs.Is(err, pgx.ErrNoRows) {
		return Wrap(err, NotFound, msg)
	}

	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		// dial failures, closed pool, cancelled or expired context
		return Wrap(err, StoreUnavailable, msg)
	}

	switch pgErr.Code {
	case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrUniqueViolation:
		return Wrap(err, Conflict, msg)
	case pgErrForeignKeyViolation, pgErrCheckViolation, pgErrInvalidTextRepr:
		return Wrap(err, ValidationFailed, msg)
	case pgErrReadOnlySQLTx, pgErrCannotConnectNow, pgErrUndefinedTable:
		return Wrap(err, StoreUnavailable, msg)
	}
	return Wrap(err, Unknown, msg)
}
