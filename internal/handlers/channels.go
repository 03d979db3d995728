package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamhub/backend/internal/envelope"
)

// ChannelHandler implements subscription and channel aggregation endpoints.
type ChannelHandler struct {
	Channels ChannelService
}

// Profile handles GET /api/v1/channels/{username}.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.Channels.ChannelProfile(ctx, chi.URLParam(r, "username"), viewer.ID)
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// Subscribe handles POST /api/v1/channels/{username}/subscribe.
func (h ChannelHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, ok := currentUser(w, r)
	if !ok {
		return
	}

	subscription, err := h.Channels.Subscribe(ctx, viewer.ID, chi.URLParam(r, "username"))
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, subscription, "Subscribed successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h ChannelHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	history, err := h.Channels.WatchHistory(ctx, user.ID)
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, history, "Watch history fetched successfully")
}

// RecordWatch handles POST /api/v1/users/history/{videoID}.
func (h ChannelHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Channels.RecordWatch(ctx, user.ID, chi.URLParam(r, "videoID")); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "Watch history updated")
}
