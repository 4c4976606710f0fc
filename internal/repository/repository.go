package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert hits a unique constraint. Callers
// treat it as a domain signal (already reviewed, payment in flight) rather
// than a failure.
var ErrDuplicate = errors.New("duplicate row")

// ErrStale is returned when a guarded update finds the row no longer in the
// expected state. The caller lost the race and must re-read.
var ErrStale = errors.New("row changed concurrently")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
