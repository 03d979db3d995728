// Package accounts implements registration, authentication and profile maintenance for
// streamhub users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperrors"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/logging"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

// UserStore captures the user persistence operations required by the service.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullName, email, username string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error)
}

// SessionManager issues, rotates and revokes session tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// MediaStore hosts uploaded media and returns its public URL.
type MediaStore interface {
	Save(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a media file received from a client.
type Upload struct {
	Name    string
	Content io.Reader
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	FullName   string `validate:"required"`
	Email      string `validate:"required"`
	Username   string `validate:"required"`
	Password   string `validate:"required"`
	Avatar     *Upload
	CoverImage *Upload
}

// LoginInput carries login credentials. Either Username or Email identifies the user.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User   models.PublicUser    `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

// AccountDetails carries the fields replaced by UpdateAccountDetails.
type AccountDetails struct {
	FullName string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// Service orchestrates account operations.
type Service struct {
	users    UserStore
	sessions SessionManager
	media    MediaStore
	validate *validator.Validate

	NowFunc func() time.Time
}

// NewService constructs an account service.
func NewService(users UserStore, sessions SessionManager, media MediaStore) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		media:    media,
		validate: validator.New(),
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// Register creates a new account and returns its public projection.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.PublicUser, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.register")
	defer span.End()
	logger := logging.FromContext(ctx)

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if strings.TrimSpace(in.Password) == "" {
		in.Password = ""
	}
	if err := s.validate.Struct(in); err != nil {
		return models.PublicUser{}, apperrors.Validation("All fields are required")
	}

	if _, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return models.PublicUser{}, apperrors.Conflict("User with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return models.PublicUser{}, apperrors.Internal("Unable to verify existing accounts", err)
	}

	if !hasContent(in.Avatar) {
		return models.PublicUser{}, apperrors.Validation("Avatar file is required")
	}

	avatarKey, avatarURL, err := s.upload(ctx, "avatars", in.Avatar)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Failed to upload avatar", err)
	}
	uploaded := []string{avatarKey}

	var coverURL string
	if hasContent(in.CoverImage) {
		coverKey, url, err := s.upload(ctx, "covers", in.CoverImage)
		if err != nil {
			logger.Warn("cover image upload failed, continuing without cover", slog.Any("error", err))
		} else {
			coverURL = url
			uploaded = append(uploaded, coverKey)
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.discardUploads(ctx, uploaded...)
		return models.PublicUser{}, apperrors.Internal("Something went wrong while registering the user", err)
	}

	now := s.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		Password:      hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.discardUploads(ctx, uploaded...)
		if errors.Is(err, repositories.ErrConflict) {
			return models.PublicUser{}, apperrors.Conflict("User with email or username already exists")
		}
		return models.PublicUser{}, apperrors.Internal("Something went wrong while registering the user", err)
	}

	created, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Something went wrong while registering the user", err)
	}

	logger.Info("user registered", slog.String("user_id", created.ID))
	return created.Public(), nil
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.login")
	defer span.End()

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" && email == "" {
		return LoginResult{}, apperrors.Validation("username or email is required")
	}
	if in.Password == "" {
		return LoginResult{}, apperrors.Validation("password is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return LoginResult{}, apperrors.NotFound("User does not exist")
		}
		return LoginResult{}, apperrors.Internal("Unable to load user", err)
	}

	if !auth.VerifyPassword(in.Password, user.Password) {
		return LoginResult{}, apperrors.Unauthorized("Invalid user credentials")
	}

	tokens, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return LoginResult{}, apperrors.Internal("Something went wrong while generating refresh and access token", err)
	}

	logging.FromContext(ctx).Info("user logged in", slog.String("user_id", user.ID))
	return LoginResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout clears the user's stored refresh token.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("User does not exist")
		}
		return apperrors.Internal("Unable to log out", err)
	}
	return nil
}

// RefreshSession exchanges the current refresh token for a new token pair.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.refresh_session")
	defer span.End()

	tokens, err := s.sessions.Refresh(ctx, strings.TrimSpace(refreshToken))
	switch {
	case err == nil:
		return tokens, nil
	case errors.Is(err, auth.ErrMissingToken):
		return models.SessionTokens{}, apperrors.Unauthorized("unauthorized request")
	case errors.Is(err, auth.ErrInvalidToken):
		return models.SessionTokens{}, apperrors.InvalidToken("Invalid refresh token")
	case errors.Is(err, auth.ErrSessionRevoked):
		return models.SessionTokens{}, apperrors.ExpiredOrRevoked("Refresh token is expired or used")
	default:
		return models.SessionTokens{}, apperrors.Internal("Unable to refresh session", err)
	}
}

// ChangePassword replaces the user's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.Validation("old and new password are required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if !auth.VerifyPassword(oldPassword, user.Password) {
		return apperrors.Validation("Invalid old password")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("Unable to change password", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return mapUserWriteError(err, "Unable to change password")
	}
	return nil
}

// CurrentUser returns the public projection of the user.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return models.PublicUser{}, err
	}
	return user.Public(), nil
}

// UpdateAccountDetails replaces the user's full name, email and username. Uniqueness is
// enforced by storage only.
func (s *Service) UpdateAccountDetails(ctx context.Context, userID string, details AccountDetails) (models.PublicUser, error) {
	details.FullName = strings.TrimSpace(details.FullName)
	details.Email = strings.ToLower(strings.TrimSpace(details.Email))
	details.Username = strings.ToLower(strings.TrimSpace(details.Username))
	if err := s.validate.Struct(details); err != nil {
		return models.PublicUser{}, apperrors.Validation("All fields are required")
	}

	user, err := s.users.UpdateDetails(ctx, userID, details.FullName, details.Email, details.Username)
	if err != nil {
		return models.PublicUser{}, mapUserWriteError(err, "Unable to update account details")
	}
	return user.Public(), nil
}

// UpdateAvatar uploads a new avatar and stores its URL.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, upload *Upload) (models.PublicUser, error) {
	return s.updateMedia(ctx, userID, upload, "avatars", "Avatar file is missing", s.users.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (s *Service) UpdateCoverImage(ctx context.Context, userID string, upload *Upload) (models.PublicUser, error) {
	return s.updateMedia(ctx, userID, upload, "covers", "Cover image file is missing", s.users.UpdateCoverImage)
}

func (s *Service) updateMedia(
	ctx context.Context,
	userID string,
	upload *Upload,
	prefix, missingMessage string,
	persist func(ctx context.Context, id, url string) (models.User, error),
) (models.PublicUser, error) {
	ctx, span := logging.StartSpan(ctx, "accounts.update_"+prefix)
	defer span.End()

	if !hasContent(upload) {
		return models.PublicUser{}, apperrors.Validation(missingMessage)
	}

	key, url, err := s.upload(ctx, prefix, upload)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal("Error while uploading file", err)
	}

	user, err := persist(ctx, userID, url)
	if err != nil {
		s.discardUploads(ctx, key)
		return models.PublicUser{}, mapUserWriteError(err, "Unable to update user media")
	}
	return user.Public(), nil
}

// upload stores the file under a fresh key and returns the key and its public URL.
func (s *Service) upload(ctx context.Context, prefix string, upload *Upload) (string, string, error) {
	if s.media == nil {
		return "", "", errors.New("media store unavailable")
	}
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), strings.ToLower(filepath.Ext(upload.Name)))
	url, err := s.media.Save(ctx, key, upload.Content)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", "", errors.New("media store returned no url")
	}
	return key, url, nil
}

// discardUploads removes media that no user row refers to. Failures are only logged.
func (s *Service) discardUploads(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.media.Delete(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("failed to remove orphaned upload", slog.String("key", key), slog.Any("error", err))
		}
	}
}

func (s *Service) loadUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperrors.NotFound("User does not exist")
		}
		return models.User{}, apperrors.Internal("Unable to load user", err)
	}
	return user, nil
}

func mapUserWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return apperrors.Conflict("Username or email is already taken")
	case errors.Is(err, repositories.ErrNotFound):
		return apperrors.NotFound("User does not exist")
	default:
		return apperrors.Internal(message, err)
	}
}

func hasContent(upload *Upload) bool {
	return upload != nil && upload.Content != nil
}
