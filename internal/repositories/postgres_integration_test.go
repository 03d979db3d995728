package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamhub/backend/internal/db"
	"github.com/streamhub/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	if os.Getenv("STREAMHUB_INTEGRATION") != "1" {
		os.Exit(m.Run())
	}

	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := db.Migrate(ctx, pool, filepath.Join("..", "..", "migrations"), "up"); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func requireDatabase(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("set STREAMHUB_INTEGRATION=1 to run database integration tests")
	}
	resetDatabase(t)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := newTestUser("other")
	dup.Email = user.Email
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByUsernameOrEmail(ctx, "", user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password || fetched.AvatarURL != user.AvatarURL {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}
	if fetched.RefreshToken != "" || len(fetched.WatchHistory) != 0 {
		t.Fatalf("expected empty session and history, got %+v", fetched)
	}

	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	updated, err := repo.UpdateDetails(ctx, user.ID, "Alice Updated", "alice.new@example.com", "alice_new")
	if err != nil {
		t.Fatalf("update details: %v", err)
	}
	if updated.Username != "alice_new" || updated.Email != "alice.new@example.com" || updated.FullName != "Alice Updated" {
		t.Fatalf("expected updated fields to persist, got %+v", updated)
	}

	other := createTestUser(t, repo, "bob")
	if _, err := repo.UpdateDetails(ctx, other.ID, "Bob", "alice.new@example.com", "bob"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when taking another user's email, got %v", err)
	}

	avatar, err := repo.UpdateAvatar(ctx, user.ID, "https://cdn.example.com/a.png")
	if err != nil || avatar.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("update avatar: %v %+v", err, avatar)
	}

	if err := repo.UpdatePassword(ctx, uuid.NewString(), "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresSessionStore_SetGetAndClear(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	user := createTestUser(t, NewPostgresUserRepository(testPool), "owner")
	store := NewPostgresSessionStore(testPool)

	if err := store.SetRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	token, err := store.GetRefreshToken(ctx, user.ID)
	if err != nil || token != "token-1" {
		t.Fatalf("expected token-1, got %q (%v)", token, err)
	}

	if err := store.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	token, err = store.GetRefreshToken(ctx, user.ID)
	if err != nil || token != "" {
		t.Fatalf("expected cleared token, got %q (%v)", token, err)
	}

	if err := store.SetRefreshToken(ctx, uuid.NewString(), "token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestPostgresChannelProfileAndSubscriptions(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)

	channel := createTestUser(t, users, "channel")
	viewer := createTestUser(t, users, "viewer")
	outsider := createTestUser(t, users, "outsider")
	fan := createTestUser(t, users, "fan")

	for _, subscriber := range []models.User{viewer, fan, outsider} {
		subscribe(t, subs, subscriber.ID, channel.ID)
	}
	subscribe(t, subs, channel.ID, fan.ID)

	duplicate := models.Subscription{ID: uuid.NewString(), SubscriberID: viewer.ID, ChannelID: channel.ID, CreatedAt: time.Now().UTC()}
	if err := subs.Create(ctx, duplicate); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate subscription, got %v", err)
	}

	exists, err := subs.Exists(ctx, viewer.ID, channel.ID)
	if err != nil || !exists {
		t.Fatalf("expected subscription to exist: %v", err)
	}

	profile, err := users.ChannelProfile(ctx, channel.Username, viewer.ID)
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.SubscribersCount != 3 || profile.ChannelsSubscribedToCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	profile, err = users.ChannelProfile(ctx, channel.Username, uuid.NewString())
	if err != nil {
		t.Fatalf("channel profile for stranger: %v", err)
	}
	if profile.IsSubscribed {
		t.Fatal("expected stranger not to be subscribed")
	}

	if _, err := users.ChannelProfile(ctx, "nobody", viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresWatchHistory(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)

	owner := createTestUser(t, users, "creator")
	viewer := createTestUser(t, users, "watcher")

	first := newTestVideo(owner.ID, "First")
	second := newTestVideo(owner.ID, "Second")
	for _, video := range []models.Video{first, second} {
		if err := videos.Create(ctx, video); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	for _, id := range []string{second.ID, uuid.NewString(), first.ID} {
		if err := users.AppendWatchHistory(ctx, viewer.ID, id); err != nil {
			t.Fatalf("append watch history: %v", err)
		}
	}

	history, err := users.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 2 || history[0].ID != second.ID || history[1].ID != first.ID {
		t.Fatalf("unexpected history order: %+v", history)
	}
	if history[0].Owner.Username != owner.Username {
		t.Fatalf("expected owner projection, got %+v", history[0].Owner)
	}

	if _, err := users.WatchHistory(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE subscriptions, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func newTestUser(username string) models.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  "password-hash",
		AvatarURL: "https://cdn.example.com/" + username + ".png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createTestUser(t *testing.T, repo UserRepository, username string) models.User {
	t.Helper()
	user := newTestUser(username)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func newTestVideo(ownerID, title string) models.Video {
	now := time.Now().UTC()
	return models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		VideoFile:   "https://cdn.example.com/" + title + ".mp4",
		Thumbnail:   "https://cdn.example.com/" + title + ".png",
		Title:       title,
		Duration:    60,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func subscribe(t *testing.T, repo SubscriptionRepository, subscriberID, channelID string) {
	t.Helper()
	err := repo.Create(context.Background(), models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
}
