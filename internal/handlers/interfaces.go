package handlers

import (
	"context"

	"github.com/streamhub/backend/internal/accounts"
	"github.com/streamhub/backend/internal/models"
)

// AccountService captures the account operations exposed over HTTP.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (models.PublicUser, error)
	Login(ctx context.Context, in accounts.LoginInput) (accounts.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshSession(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (models.PublicUser, error)
	UpdateAccountDetails(ctx context.Context, userID string, details accounts.AccountDetails) (models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID string, upload *accounts.Upload) (models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID string, upload *accounts.Upload) (models.PublicUser, error)
}

// ChannelService captures the subscription and aggregation operations exposed over HTTP.
type ChannelService interface {
	Subscribe(ctx context.Context, subscriberID, channelUsername string) (models.Subscription, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error)
	RecordWatch(ctx context.Context, userID, videoID string) error
}
