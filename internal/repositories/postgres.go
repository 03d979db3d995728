package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

const userColumns = `id, username, email, full_name, password_hash, avatar_url, cover_image_url,
        COALESCE(refresh_token, ''), watch_history::TEXT[], created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, cover_image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.AvatarURL, user.CoverImageURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "select user by id", `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1
    `, id)
}

// FindByUsername fetches a user by username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, "select user by username", `
        SELECT `+userColumns+`
        FROM users
        WHERE username = $1
    `, username)
}

// FindByUsernameOrEmail fetches the first user matching either the username or the email.
// Empty arguments never match.
func (r *PostgresUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (models.User, error) {
	return r.findOne(ctx, "select user by username or email", `
        SELECT `+userColumns+`
        FROM users
        WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
        ORDER BY created_at
        LIMIT 1
    `, username, email)
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("update password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateDetails replaces the full name, email and username in a single write.
func (r *PostgresUserRepository) UpdateDetails(ctx context.Context, id, fullName, email, username string) (models.User, error) {
	return r.findOne(ctx, "update user details", `
        UPDATE users
        SET full_name = $2, email = $3, username = $4, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email, username)
}

// UpdateAvatar stores a new avatar URL.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error) {
	return r.findOne(ctx, "update avatar", `
        UPDATE users
        SET avatar_url = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, avatarURL)
}

// UpdateCoverImage stores a new cover image URL.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error) {
	return r.findOne(ctx, "update cover image", `
        UPDATE users
        SET cover_image_url = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, id, coverImageURL)
}

// AppendWatchHistory appends a video to the end of the user's watch history.
func (r *PostgresUserRepository) AppendWatchHistory(ctx context.Context, id, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET watch_history = array_append(watch_history, $2::UUID), updated_at = NOW()
        WHERE id = $1
    `, id, videoID)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("append watch history: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ChannelProfile loads the public profile of the user with the given username together
// with subscriber counts and whether viewerID subscribes to it, in a single query.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.full_name, u.username, u.email, u.avatar_url, u.cover_image_url,
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
            EXISTS (
                SELECT 1 FROM subscriptions s
                WHERE s.channel_id = u.id AND s.subscriber_id::TEXT = $2
            )
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Username,
		&profile.Email,
		&profile.Avatar,
		&profile.CoverImage,
		&profile.SubscribersCount,
		&profile.ChannelsSubscribedToCount,
		&profile.IsSubscribed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory resolves the user's watch history into videos annotated with their owner,
// in history order. Entries whose video no longer exists are skipped.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, id string) ([]models.WatchHistoryEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var history []string
	err = conn.QueryRow(ctx, `
        SELECT watch_history::TEXT[]
        FROM users
        WHERE id = $1
    `, id).Scan(&history)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if mapped := mapPgError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("select watch history: %w", err)
	}

	entries := make([]models.WatchHistoryEntry, 0, len(history))
	if len(history) == 0 {
		return entries, nil
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_file, v.thumbnail, v.title, v.description, v.duration,
            v.views, v.is_published, v.created_at, v.updated_at,
            o.full_name, o.username, o.avatar_url
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.id::TEXT = ANY($1)
    `, history)
	if err != nil {
		return nil, fmt.Errorf("select watched videos: %w", err)
	}
	defer rows.Close()

	resolved := make(map[string]models.WatchHistoryEntry, len(history))
	for rows.Next() {
		var entry models.WatchHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.VideoFile,
			&entry.Thumbnail,
			&entry.Title,
			&entry.Description,
			&entry.Duration,
			&entry.Views,
			&entry.IsPublished,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&entry.Owner.FullName,
			&entry.Owner.Username,
			&entry.Owner.Avatar,
		); err != nil {
			return nil, fmt.Errorf("scan watched video: %w", err)
		}
		resolved[entry.ID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watched videos: %w", err)
	}

	for _, videoID := range history {
		if entry, ok := resolved[videoID]; ok {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func (r *PostgresUserRepository) findOne(ctx context.Context, op, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var user models.User
	err = conn.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.Password,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.RefreshToken,
		&user.WatchHistory,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		if mapped := mapPgError(err); mapped != nil {
			return models.User{}, mapped
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create persists a new subscription edge. A duplicate edge yields ErrConflict.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, subscription models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, subscription.ID, subscription.SubscriberID, subscription.ChannelID, subscription.CreatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// Exists reports whether subscriberID subscribes to channelID.
func (r *PostgresSubscriptionRepository) Exists(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions
            WHERE subscriber_id::TEXT = $1 AND channel_id::TEXT = $2
        )
    `, subscriberID, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select subscription: %w", err)
	}

	return exists, nil
}

// PostgresVideoRepository provides PostgreSQL-backed access to videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create persists a video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoFile, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video by identifier.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var video models.Video
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, video_file, thumbnail, title, description, duration, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id).Scan(
		&video.ID,
		&video.OwnerID,
		&video.VideoFile,
		&video.Thumbnail,
		&video.Title,
		&video.Description,
		&video.Duration,
		&video.Views,
		&video.IsPublished,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		if mapped := mapPgError(err); mapped != nil {
			return models.Video{}, mapped
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}
