package handlers

import (
	"net/http"
	"time"

	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/models"
)

func sessionCookie(cfg *config.CookieConfig, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSiteMode(),
	}
}

func setSessionCookies(w http.ResponseWriter, cfg *config.CookieConfig, tokens models.SessionTokens) {
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessName, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(cfg, cfg.RefreshName, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func clearSessionCookies(w http.ResponseWriter, cfg *config.CookieConfig) {
	for _, name := range []string{cfg.AccessName, cfg.RefreshName} {
		cookie := sessionCookie(cfg, name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}
