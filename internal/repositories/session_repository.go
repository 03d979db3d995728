package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamhub/backend/internal/db"
)

// PostgresSessionStore persists each user's current refresh token in users.refresh_token.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// SetRefreshToken replaces the user's refresh token. An empty token clears the column.
func (s *PostgresSessionStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULLIF($2, ''), updated_at = NOW()
        WHERE id = $1
    `, userID, token)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetRefreshToken loads the user's current refresh token, or "" if none is stored.
func (s *PostgresSessionStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token string
	err = conn.QueryRow(ctx, `
        SELECT COALESCE(refresh_token, '')
        FROM users
        WHERE id = $1
    `, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		if mapped := mapPgError(err); mapped != nil {
			return "", mapped
		}
		return "", fmt.Errorf("select refresh token: %w", err)
	}

	return token, nil
}
