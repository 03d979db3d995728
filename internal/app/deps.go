package app

import (
	"context"
	"fmt"

	"github.com/streamhub/backend/internal/accounts"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/channels"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/handlers"
	"github.com/streamhub/backend/internal/repositories"
	"github.com/streamhub/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure media storage: %w", err)
	}

	users := repositories.NewPostgresUserRepository(pool)
	tokens := auth.NewTokenIssuer(cfg.Tokens)
	sessions := auth.NewManager(tokens, users, repositories.NewPostgresSessionStore(pool))

	return handlers.Dependencies{
		Accounts: accounts.NewService(users, sessions, media),
		Channels: channels.NewService(
			users,
			repositories.NewPostgresSubscriptionRepository(pool),
			repositories.NewPostgresVideoRepository(pool),
		),
		Tokens:         tokens,
		Users:          users,
		Cookies:        cfg.Cookies,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DB:             pool,
	}, nil
}
