// Package channels computes subscription relationships and the aggregated views built on
// them: channel profiles and watch history.
package channels

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// UserStore captures the user reads and aggregations required by the service.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (models.User, error)
	AppendWatchHistory(ctx context.Context, id, videoID string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id string) ([]models.WatchHistoryEntry, error)
}

// SubscriptionStore persists subscription edges.
type SubscriptionStore interface {
	Create(ctx context.Context, subscription models.Subscription) error
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoStore resolves videos by identifier.
type VideoStore interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Service implements subscriptions and channel aggregations.
type Service struct {
	users         UserStore
	subscriptions SubscriptionStore
	videos        VideoStore

	NowFunc func() time.Time
}

// NewService constructs a channel service.
func NewService(users UserStore, subscriptions SubscriptionStore, videos VideoStore) *Service {
	return &Service{users: users, subscriptions: subscriptions, videos: videos}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// Subscribe makes subscriberID a subscriber of the channel owned by channelUsername.
func (s *Service) Subscribe(ctx context.Context, subscriberID, channelUsername string) (models.Subscription, error) {
	ctx, span := logging.StartSpan(ctx, "channels.subscribe")
	defer span.End()

	channelUsername = strings.ToLower(strings.TrimSpace(channelUsername))
	if channelUsername == "" {
		return models.Subscription{}, apperrors.Validation("username is missing")
	}

	channel, err := s.users.FindByUsername(ctx, channelUsername)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Subscription{}, apperrors.NotFound("Channel does not exist")
		}
		return models.Subscription{}, apperrors.Internal("Unable to load channel", err)
	}

	exists, err := s.subscriptions.Exists(ctx, subscriberID, channel.ID)
	if err != nil {
		return models.Subscription{}, apperrors.Internal("Unable to check subscription", err)
	}
	if exists {
		return models.Subscription{}, apperrors.Conflict("Already subscribed to this channel")
	}

	subscription := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channel.ID,
		CreatedAt:    s.now(),
	}
	if err := s.subscriptions.Create(ctx, subscription); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.Subscription{}, apperrors.Conflict("Already subscribed to this channel")
		}
		return models.Subscription{}, apperrors.Internal("Unable to subscribe", err)
	}

	exists, err = s.subscriptions.Exists(ctx, subscriberID, channel.ID)
	if err != nil || !exists {
		return models.Subscription{}, apperrors.Internal("Something went wrong while subscribing", err)
	}

	logging.FromContext(ctx).Info("subscription created",
		slog.String("subscriber_id", subscriberID),
		slog.String("channel_id", channel.ID),
	)
	return subscription, nil
}

// ChannelProfile returns the public profile of the channel with subscription counters
// computed for viewerID.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return models.ChannelProfile{}, apperrors.Validation("username is missing")
	}

	profile, err := s.users.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.ChannelProfile{}, apperrors.NotFound("channel does not exists")
		}
		return models.ChannelProfile{}, apperrors.Internal("Unable to load channel", err)
	}
	return profile, nil
}

// WatchHistory resolves the user's watch history, most recently appended last.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	history, err := s.users.WatchHistory(ctx, userID)
	if err != nil {
		// The user was resolved by the auth gate, so a missing record is a broken invariant.
		return nil, apperrors.Internal("Unable to load watch history", err)
	}
	if history == nil {
		history = []models.WatchHistoryEntry{}
	}
	return history, nil
}

// RecordWatch appends the video to the user's watch history.
func (s *Service) RecordWatch(ctx context.Context, userID, videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return apperrors.Validation("video id is missing")
	}

	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("Video does not exist")
		}
		return apperrors.Internal("Unable to load video", err)
	}

	if err := s.users.AppendWatchHistory(ctx, userID, videoID); err != nil {
		return apperrors.Internal("Unable to record watch history", err)
	}
	return nil
}
