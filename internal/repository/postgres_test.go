package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPool connects to TEST_DATABASE_DSN; tests are skipped without it.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE messages, songs, albums, users, audit_log`)
	require.NoError(t, err)
	return pool
}

func TestMessageRepository_Postgres(t *testing.T) {
	pool := newTestPool(t)
	repo := NewMessageRepository(pool, logger.Nop())
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := &domain.Message{ID: uuid.New(), SenderID: "u1", ReceiverID: "u2", Text: "hi", CreatedAt: base, UpdatedAt: base}
	second := &domain.Message{
		ID: uuid.New(), SenderID: "u2", ReceiverID: "u1", CreatedAt: base.Add(time.Second), UpdatedAt: base.Add(time.Second),
		File:    &domain.FileAttachment{URL: "https://cdn/x.png", MimeType: "image/png", Name: "x.png"},
		ReplyTo: &domain.ReplyReference{MessageID: first.ID, Message: "hi", SenderName: "Ada"},
	}
	other := &domain.Message{ID: uuid.New(), SenderID: "u1", ReceiverID: "u3", Text: "elsewhere", CreatedAt: base, UpdatedAt: base}

	for _, m := range []*domain.Message{second, first, other} {
		require.NoError(t, repo.Create(ctx, m))
	}

	conversation, err := repo.ListConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Len(t, conversation, 2)
	assert.Equal(t, first.ID, conversation[0].ID)
	assert.Equal(t, second.ID, conversation[1].ID)
	assert.Equal(t, "x.png", conversation[1].File.Name)
	assert.Equal(t, "Ada", conversation[1].ReplyTo.SenderName)

	edited, err := repo.UpdateText(ctx, first.ID, "hello", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Text)
	require.NotNil(t, edited.EditedAt)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), apperrors.ErrNotFound)

	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)

	all, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestContentRepositories_Postgres(t *testing.T) {
	pool := newTestPool(t)
	repos := NewRepositories(pool, logger.Nop())
	ctx := context.Background()
	now := time.Now()

	album := &domain.Album{ID: uuid.New(), Title: "Blue Train", Artist: "Coltrane", ReleaseYear: 1958, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.Album.Create(ctx, album))

	song := &domain.Song{ID: uuid.New(), Title: "Moment's Notice", Artist: "Coltrane", AudioURL: "https://cdn/a.mp3", Duration: 550, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.Song.Create(ctx, song))
	require.NoError(t, repos.Album.AttachSong(ctx, album.ID, song.ID))

	songs, err := repos.Song.ListByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)

	found, err := repos.Song.Search(ctx, "moment", 20)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, repos.User.Upsert(ctx, &domain.User{ID: "u1", DisplayName: "Ada"}))
	stats, err := repos.Stats.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{TotalSongs: 1, TotalAlbums: 1, TotalUsers: 1, TotalArtists: 1}, *stats)

	deleted, err := repos.Song.DeleteByAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	require.NoError(t, repos.Album.Delete(ctx, album.ID))
}

func TestAuditRepository_Postgres(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAuditRepository(pool, logger.Nop())
	ctx := context.Background()

	target := uuid.New()
	first := &domain.AuditEntry{EventTime: time.Now().UTC(), ActorID: "admin", Action: domain.AuditAlbumCreated, TargetID: &target, Payload: map[string]interface{}{"title": "Blue Train"}}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &domain.AuditEntry{EventTime: time.Now().UTC(), ActorID: "admin", Action: domain.AuditAlbumDeleted, TargetID: &target, Payload: map[string]interface{}{}}))
	assert.NotZero(t, first.ID)

	entries, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditAlbumDeleted, entries[0].Action)
	assert.Equal(t, "Blue Train", entries[1].Payload["title"])
	require.NotNil(t, entries[1].TargetID)
	assert.Equal(t, target, *entries[1].TargetID)
}
