package models

import "time"

// User represents an account within the streamhub platform. It carries the
// password hash and current refresh token and must never be written to a response
// directly; use Public instead.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	WatchHistory  []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser is the projection of a user that is safe to return to clients.
type PublicUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullname"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public strips the password hash and refresh token from the user.
func (u User) Public() PublicUser {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.AvatarURL,
		CoverImage:   u.CoverImageURL,
		WatchHistory: append([]string(nil), history...),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Subscription is a directed edge from a subscriber to a channel. Both ends are users.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelProfile is the public view of a user seen as a channel, with subscription counters
// computed relative to the viewer.
type ChannelProfile struct {
	ID                        string `json:"id"`
	FullName                  string `json:"fullname"`
	Username                  string `json:"username"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

// Video is an uploaded video. Videos are only read by this service.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoOwner is the minimal owner projection attached to watch history entries.
type VideoOwner struct {
	FullName string `json:"fullname"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchHistoryEntry is a resolved watch history item.
type WatchHistoryEntry struct {
	Video
	Owner VideoOwner `json:"owner"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
