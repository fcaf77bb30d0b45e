package database

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-order-service/internal/apperror"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
)

// TranslateError turns Postgres concurrency failures into apperror.ErrConflict
// and constraint violations into the matching caller-facing kind. Other errors
// are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return fmt.Errorf("%w: %s", apperror.ErrConflict, pgErr.Message)
	case sqlStateUniqueViolation:
		return fmt.Errorf("%w: %s", apperror.ErrConflict, pgErr.Message)
	case sqlStateForeignKeyViolation:
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, pgErr.Message)
	}
	return err
}
