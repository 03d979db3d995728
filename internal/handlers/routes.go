package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/envelope"
	"github.com/streamhub/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts       AccountService
	Channels       ChannelService
	Tokens         middleware.AccessVerifier
	Users          middleware.UserLookup
	Cookies        config.CookieConfig
	MaxUploadBytes int64
	DB             Pinger
}

// NewRouter wires HTTP handlers into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	cookies := deps.Cookies
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{Accounts: deps.Accounts, Cookies: &cookies, MaxUploadBytes: deps.MaxUploadBytes}
	channels := ChannelHandler{Channels: deps.Channels}
	requireAuth := middleware.Authenticate(deps.Tokens, deps.Users, cookies.AccessName)

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		envelope.Error(r.Context(), w, apperrors.NotFound("route not found"))
	})

	r.Get("/healthz", health.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Get("/login", users.Login)
			r.Post("/login", users.Login)
			r.Post("/refresh-token", users.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Post("/update-details", users.UpdateDetails)
				r.Post("/update-avatar", users.UpdateAvatar)
				r.Post("/update-cover-image", users.UpdateCoverImage)
				r.Get("/history", channels.WatchHistory)
				r.Post("/history/{videoID}", channels.RecordWatch)
			})
		})

		r.Route("/channels", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{username}", channels.Profile)
			r.Post("/{username}/subscribe", channels.Subscribe)
		})
	})

	return r
}
