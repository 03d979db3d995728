package repositories

import (
	"context"

	"github.com/streamhub/backend/internal/models"
)

// SubscriptionRepository defines data access for subscriber to channel edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription models.Subscription) error
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
}
