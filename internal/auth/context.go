package auth

import (
	"context"

	"github.com/streamhub/backend/internal/models"
)

type ctxKey struct{}

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user models.PublicUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (models.PublicUser, bool) {
	if ctx == nil {
		return models.PublicUser{}, false
	}
	user, ok := ctx.Value(ctxKey{}).(models.PublicUser)
	return user, ok
}
