package repositories

import (
	"context"

	"github.com/streamhub/backend/internal/models"
)

// VideoRepository exposes read access to videos plus creation for fixtures.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
}
