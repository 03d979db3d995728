package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

var (
	// ErrMissingToken indicates no refresh token was presented.
	ErrMissingToken = errors.New("refresh token missing")
	// ErrSessionRevoked indicates the refresh token is no longer the user's current token,
	// either because it was rotated or because the user logged out.
	ErrSessionRevoked = errors.New("refresh token expired or revoked")
)

// SessionStore persists the single current refresh token of each user. An empty string
// means no active session.
type SessionStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
}

// UserLoader resolves users referenced by token claims.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Manager issues token pairs and manages the refresh-token lifecycle.
type Manager struct {
	tokens *TokenIssuer
	users  UserLoader
	store  SessionStore
}

// NewManager constructs a Manager backed by the provided session store.
func NewManager(tokens *TokenIssuer, users UserLoader, store SessionStore) *Manager {
	if tokens == nil || users == nil || store == nil {
		panic("auth: token issuer, user loader and session store must not be nil")
	}
	return &Manager{
		tokens: tokens,
		users:  users,
		store:  store,
	}
}

// Issue mints a new access and refresh token pair for the user and stores the refresh
// token as the user's current session. Tokens are only returned once persisted.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	accessToken, accessExpiresAt, err := m.tokens.IssueAccessToken(user)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExpiresAt, err := m.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Refresh exchanges the user's current refresh token for a new token pair. The presented
// token is replaced, so it cannot be used again.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrMissingToken
	}

	claims, err := m.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	user, err := m.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, ErrInvalidToken
		}
		return models.SessionTokens{}, fmt.Errorf("load user: %w", err)
	}

	current, err := m.store.GetRefreshToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, ErrInvalidToken
		}
		return models.SessionTokens{}, fmt.Errorf("load refresh token: %w", err)
	}

	if current == "" || subtle.ConstantTimeCompare([]byte(current), []byte(refreshToken)) != 1 {
		return models.SessionTokens{}, ErrSessionRevoked
	}

	return m.Issue(ctx, user)
}

// Revoke clears the user's current refresh token.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id must be provided")
	}
	return m.store.SetRefreshToken(ctx, userID, "")
}
