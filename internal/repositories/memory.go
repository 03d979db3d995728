package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/streamhub/backend/internal/models"
)

// MemoryStore is an in-memory implementation of the user, subscription, video and session
// repositories. It enforces the same uniqueness rules as the PostgreSQL schema and backs the
// service and HTTP tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	subscriptions []models.Subscription
	videos        map[string]models.Video

	// NowFunc overrides the clock used for updated_at.
	NowFunc func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]models.User),
		videos: make(map[string]models.Video),
	}
}

func (s *MemoryStore) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// Create stores a new user.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	if s.identityTaken(user.ID, user.Username, user.Email) {
		return ErrConflict
	}
	user.WatchHistory = append([]string(nil), user.WatchHistory...)
	s.users[user.ID] = user
	return nil
}

// FindByID returns the user with the given identifier.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

// FindByUsername returns the user with the given username.
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindByUsernameOrEmail returns a user matching either value. Empty values never match.
func (s *MemoryStore) FindByUsernameOrEmail(_ context.Context, username, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

// UpdatePassword stores a new password hash.
func (s *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := s.update(id, func(user *models.User) error {
		user.Password = passwordHash
		return nil
	})
	return err
}

// UpdateDetails replaces the full name, email and username.
func (s *MemoryStore) UpdateDetails(_ context.Context, id, fullName, email, username string) (models.User, error) {
	return s.update(id, func(user *models.User) error {
		if s.identityTaken(id, username, email) {
			return ErrConflict
		}
		user.FullName = fullName
		user.Email = email
		user.Username = username
		return nil
	})
}

// UpdateAvatar stores a new avatar URL.
func (s *MemoryStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	return s.update(id, func(user *models.User) error {
		user.AvatarURL = avatarURL
		return nil
	})
}

// UpdateCoverImage stores a new cover image URL.
func (s *MemoryStore) UpdateCoverImage(_ context.Context, id, coverImageURL string) (models.User, error) {
	return s.update(id, func(user *models.User) error {
		user.CoverImageURL = coverImageURL
		return nil
	})
}

// AppendWatchHistory appends a video to the user's watch history.
func (s *MemoryStore) AppendWatchHistory(_ context.Context, id, videoID string) error {
	_, err := s.update(id, func(user *models.User) error {
		user.WatchHistory = append(user.WatchHistory, videoID)
		return nil
	})
	return err
}

// ChannelProfile computes the public channel view of username relative to viewerID.
func (s *MemoryStore) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		channel models.User
		found   bool
	)
	for _, user := range s.users {
		if user.Username == username {
			channel, found = user, true
			break
		}
	}
	if !found {
		return models.ChannelProfile{}, ErrNotFound
	}

	profile := models.ChannelProfile{
		ID:         channel.ID,
		FullName:   channel.FullName,
		Username:   channel.Username,
		Email:      channel.Email,
		Avatar:     channel.AvatarURL,
		CoverImage: channel.CoverImageURL,
	}
	for _, sub := range s.subscriptions {
		if sub.ChannelID == channel.ID {
			profile.SubscribersCount++
			if sub.SubscriberID == viewerID {
				profile.IsSubscribed = true
			}
		}
		if sub.SubscriberID == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

// WatchHistory resolves the user's watch history in order, skipping missing videos.
func (s *MemoryStore) WatchHistory(_ context.Context, id string) ([]models.WatchHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	entries := make([]models.WatchHistoryEntry, 0, len(user.WatchHistory))
	for _, videoID := range user.WatchHistory {
		video, ok := s.videos[videoID]
		if !ok {
			continue
		}
		owner := s.users[video.OwnerID]
		entries = append(entries, models.WatchHistoryEntry{
			Video: video,
			Owner: models.VideoOwner{
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.AvatarURL,
			},
		})
	}
	return entries, nil
}

// SetRefreshToken replaces the user's current refresh token.
func (s *MemoryStore) SetRefreshToken(_ context.Context, userID, token string) error {
	_, err := s.update(userID, func(user *models.User) error {
		user.RefreshToken = token
		return nil
	})
	return err
}

// GetRefreshToken returns the user's current refresh token.
func (s *MemoryStore) GetRefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return "", ErrNotFound
	}
	return user.RefreshToken, nil
}

// Subscriptions returns a MemoryStore view satisfying SubscriptionRepository.
func (s *MemoryStore) Subscriptions() *MemorySubscriptions {
	return &MemorySubscriptions{store: s}
}

// Videos returns a MemoryStore view satisfying VideoRepository.
func (s *MemoryStore) Videos() *MemoryVideos {
	return &MemoryVideos{store: s}
}

// MemorySubscriptions implements SubscriptionRepository on top of a MemoryStore.
type MemorySubscriptions struct {
	store *MemoryStore
}

// Create stores a subscription edge. Duplicate edges and unknown users are rejected.
func (m *MemorySubscriptions) Create(_ context.Context, subscription models.Subscription) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[subscription.SubscriberID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[subscription.ChannelID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.subscriptions {
		if existing.SubscriberID == subscription.SubscriberID && existing.ChannelID == subscription.ChannelID {
			return ErrConflict
		}
	}
	s.subscriptions = append(s.subscriptions, subscription)
	return nil
}

// Exists reports whether the edge exists.
func (m *MemorySubscriptions) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.subscriptions {
		if existing.SubscriberID == subscriberID && existing.ChannelID == channelID {
			return true, nil
		}
	}
	return false, nil
}

// MemoryVideos implements VideoRepository on top of a MemoryStore.
type MemoryVideos struct {
	store *MemoryStore
}

// Create stores a video.
func (m *MemoryVideos) Create(_ context.Context, video models.Video) error {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

// FindByID returns the video with the given identifier.
func (m *MemoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s := m.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (s *MemoryStore) update(id string, apply func(*models.User) error) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if err := apply(&user); err != nil {
		return models.User{}, err
	}
	user.UpdatedAt = s.now()
	s.users[id] = user
	return cloneUser(user), nil
}

// identityTaken reports whether another user already holds username or email. Callers
// must hold the lock.
func (s *MemoryStore) identityTaken(id, username, email string) bool {
	for _, other := range s.users {
		if other.ID == id {
			continue
		}
		if other.Username == username || other.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(user models.User) models.User {
	user.WatchHistory = append([]string(nil), user.WatchHistory...)
	return user
}
