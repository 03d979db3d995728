package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// mapPgError translates PostgreSQL errors that have a repository meaning. It returns nil
// for errors that should be wrapped by the caller.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return ErrConflict
	case "23503", "22P02": // foreign_key_violation, invalid_text_representation
		return ErrNotFound
	}
	return nil
}
