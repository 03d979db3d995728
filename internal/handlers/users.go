package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/streamhub/backend/internal/accounts"
	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/config"
	"github.com/streamhub/backend/internal/envelope"
	"github.com/streamhub/backend/internal/models"
)

const defaultMaxUploadBytes = 10 << 20

// UserHandler implements the /users endpoints.
type UserHandler struct {
	Accounts       AccountService
	Cookies        *config.CookieConfig
	MaxUploadBytes int64
}

// Register handles POST /api/v1/users/register (multipart form).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.parseMultipart(w, r); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	avatar, closeAvatar := formUpload(r, "avatar")
	defer closeAvatar()
	cover, closeCover := formUpload(r, "coverImage")
	defer closeCover()

	fullName := r.FormValue("fullName")
	if fullName == "" {
		fullName = r.FormValue("fullname")
	}

	user, err := h.Accounts.Register(ctx, accounts.RegisterInput{
		FullName:   fullName,
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusCreated, user, "User registered Successfully")
}

// Login handles GET and POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	result, err := h.Accounts.Login(ctx, accounts.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	setSessionCookies(w, h.Cookies, result.Tokens)
	envelope.JSON(ctx, w, http.StatusOK, loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	}, "User logged In Successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.Logout(ctx, user.ID); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	clearSessionCookies(w, h.Cookies)
	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "User logged Out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read from the refresh
// cookie, falling back to the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(h.Cookies.RefreshName); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			envelope.Error(ctx, w, err)
			return
		}
		token = req.RefreshToken
	}

	tokens, err := h.Accounts.RefreshSession(ctx, token)
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	setSessionCookies(w, h.Cookies, tokens)
	envelope.JSON(ctx, w, http.StatusOK, tokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	if err := h.Accounts.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	fresh, err := h.Accounts.CurrentUser(ctx, user.ID)
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, fresh, "User fetched successfully")
}

// UpdateDetails handles POST /api/v1/users/update-details.
func (h UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req updateDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		envelope.Error(ctx, w, err)
		return
	}
	fullName := req.FullName
	if fullName == "" {
		fullName = req.FullNameCamel
	}

	updated, err := h.Accounts.UpdateAccountDetails(ctx, user.ID, accounts.AccountDetails{
		FullName: fullName,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, updated, "Account details updated successfully")
}

// UpdateAvatar handles POST /api/v1/users/update-avatar (multipart field "avatar").
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "avatar", h.Accounts.UpdateAvatar, "Avatar image updated successfully")
}

// UpdateCoverImage handles POST /api/v1/users/update-cover-image (multipart field "coverImage").
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "coverImage", h.Accounts.UpdateCoverImage, "Cover image updated successfully")
}

func (h UserHandler) updateMedia(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, upload *accounts.Upload) (models.PublicUser, error),
	message string,
) {
	ctx := r.Context()
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	upload, closeUpload := formUpload(r, field)
	defer closeUpload()

	updated, err := update(ctx, user.ID, upload)
	if err != nil {
		envelope.Error(ctx, w, err)
		return
	}

	envelope.JSON(ctx, w, http.StatusOK, updated, message)
}

func (h UserHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.Validation("Uploaded file is too large")
		}
		return apperrors.Validation("Request must be multipart/form-data")
	}
	return nil
}

// formUpload returns the named file from a parsed multipart form, or nil when absent. The
// returned func closes the file.
func formUpload(r *http.Request, field string) (*accounts.Upload, func()) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	return &accounts.Upload{Name: header.Filename, Content: file}, func() { closeFile(file) }
}

func closeFile(file multipart.File) {
	_ = file.Close()
}

func currentUser(w http.ResponseWriter, r *http.Request) (models.PublicUser, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		envelope.Error(r.Context(), w, apperrors.Unauthorized("Unauthorized request"))
		return models.PublicUser{}, false
	}
	return user, true
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Validation("invalid request body")
	}
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateDetailsRequest struct {
	FullName      string `json:"fullname"`
	FullNameCamel string `json:"fullName"`
	Email         string `json:"email"`
	Username      string `json:"username"`
}
