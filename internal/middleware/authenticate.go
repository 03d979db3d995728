package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/envelope"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// AccessVerifier validates access tokens.
type AccessVerifier interface {
	VerifyAccessToken(token string) (auth.AccessClaims, error)
}

// UserLookup resolves the user named by an access token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticate rejects requests without a valid access token and stores the resolved user
// on the request context. The token is read from the Authorization header, falling back to
// the named cookie.
func Authenticate(verifier AccessVerifier, users UserLookup, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessToken(r, cookieName)
			if token == "" {
				envelope.Error(ctx, w, apperrors.Unauthorized("Unauthorized request"))
				return
			}

			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				envelope.Error(ctx, w, apperrors.Unauthorized("Invalid access token"))
				return
			}

			user, err := users.FindByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					envelope.Error(ctx, w, apperrors.Unauthorized("Invalid access token"))
					return
				}
				envelope.Error(ctx, w, apperrors.Internal("Unable to authenticate request", err))
				return
			}

			logger := logging.FromContext(ctx).With(slog.String("user_id", user.ID))
			ctx = logging.WithLogger(ctx, logger)
			ctx = auth.WithUser(ctx, user.Public())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request, cookieName string) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
			return strings.TrimSpace(header[len("Bearer "):])
		}
		return header
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
