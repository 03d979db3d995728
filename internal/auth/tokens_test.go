package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/models"
)

func newTestIssuer(now *time.Time) *TokenIssuer {
	issuer := NewTokenIssuer(config.TokenConfig{
		AccessSecret:  "access-secret-0123456789",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret-0123456789",
		RefreshTTL:    240 * time.Hour,
	})
	if now != nil {
		issuer.NowFunc = func() time.Time { return *now }
	}
	return issuer
}

func testUser() models.User {
	return models.User{
		ID:       "5a3c0c6e-1a0e-4d3c-9f57-1e7d2c4b8a90",
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(nil)

	token, expiresAt, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiry got %v", expiresAt)
	}

	claims, err := issuer.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != testUser().ID || claims.Username != "alice" || claims.Email != "alice@example.com" || claims.FullName != "Alice Liddell" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(nil)

	token, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.VerifyRefreshToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1 got %q", claims.UserID)
	}
}

func TestTokensAreUniquePerIssue(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(&now)

	first, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct refresh tokens minted at the same instant")
	}
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(&now)

	access, _, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, RefreshClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{UserID: "user-1"}).
		SignedString([]byte("refresh-secret-0123456789"))
	if err != nil {
		t.Fatalf("sign token without expiry: %v", err)
	}

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("some-other-secret-0123456789"))
	if err != nil {
		t.Fatalf("sign token with wrong secret: %v", err)
	}

	cases := map[string]string{
		"empty":           "",
		"malformed":       "not-a-jwt",
		"accessAsRefresh": access,
		"wrongAlgorithm":  noneToken,
		"missingExpiry":   noExpiry,
		"wrongSecret":     wrongSecret,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.VerifyRefreshToken(token); err != ErrInvalidToken {
				t.Fatalf("expected ErrInvalidToken got %v", err)
			}
		})
	}

	if _, err := issuer.VerifyAccessToken(refresh); err != ErrInvalidToken {
		t.Fatalf("expected refresh token to be rejected as access token got %v", err)
	}
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(&now)

	access, _, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	refresh, _, err := issuer.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := issuer.VerifyAccessToken(access); err != ErrInvalidToken {
		t.Fatalf("expected expired access token to fail got %v", err)
	}
	if _, err := issuer.VerifyRefreshToken(refresh); err != nil {
		t.Fatalf("refresh token should still be valid: %v", err)
	}

	now = now.Add(241 * time.Hour)
	if _, err := issuer.VerifyRefreshToken(refresh); err != ErrInvalidToken {
		t.Fatalf("expected expired refresh token to fail got %v", err)
	}
}
