package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/models"
)

// ErrInvalidToken is returned for every token that fails verification, whether it is
// malformed, expired, signed with another key or uses an unexpected algorithm.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the claim set carried by access tokens.
type AccessClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claim set carried by refresh tokens.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens. Each kind has its own secret
// and lifetime.
type TokenIssuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration

	// NowFunc overrides the clock, mainly for tests.
	NowFunc func() time.Time
}

// NewTokenIssuer builds a TokenIssuer from the token configuration.
func NewTokenIssuer(cfg config.TokenConfig) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		accessTTL:     cfg.AccessTTL,
		refreshSecret: []byte(cfg.RefreshSecret),
		refreshTTL:    cfg.RefreshTTL,
		NowFunc:       time.Now,
	}
}

func (t *TokenIssuer) now() time.Time {
	if t.NowFunc == nil {
		return time.Now()
	}
	return t.NowFunc()
}

// IssueAccessToken signs an access token for the user.
func (t *TokenIssuer) IssueAccessToken(user models.User) (string, time.Time, error) {
	if user.ID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}

	now := t.now()
	expiresAt := now.Add(t.accessTTL)
	claims := AccessClaims{
		UserID:           user.ID,
		Username:         user.Username,
		Email:            user.Email,
		FullName:         user.FullName,
		RegisteredClaims: registeredClaims(now, expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken signs a refresh token for the user identifier.
func (t *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id must be provided")
	}

	now := t.now()
	expiresAt := now.Add(t.refreshTTL)
	claims := RefreshClaims{
		UserID:           userID,
		RegisteredClaims: registeredClaims(now, expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks the signature and expiry of an access token.
func (t *TokenIssuer) VerifyAccessToken(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := t.parse(token, &claims, t.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.UserID == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature and expiry of a refresh token.
func (t *TokenIssuer) VerifyRefreshToken(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := t.parse(token, &claims, t.refreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	if claims.UserID == "" {
		return RefreshClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func registeredClaims(now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}
