package memory

import (
	"context"
	"testing"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_ConversationOrder(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	at := time.Now()

	later := &domain.Message{ID: uuid.New(), SenderID: "b", ReceiverID: "a", Text: "second", CreatedAt: at.Add(time.Second)}
	sameA := &domain.Message{ID: uuid.New(), SenderID: "a", ReceiverID: "b", Text: "first", CreatedAt: at}
	sameB := &domain.Message{ID: uuid.New(), SenderID: "a", ReceiverID: "b", Text: "first-bis", CreatedAt: at}
	unrelated := &domain.Message{ID: uuid.New(), SenderID: "a", ReceiverID: "c", Text: "x", CreatedAt: at}

	for _, m := range []*domain.Message{later, sameA, sameB, unrelated} {
		require.NoError(t, repo.Create(ctx, m))
	}

	conversation, err := repo.ListConversation(ctx, "b", "a")
	require.NoError(t, err)
	require.Len(t, conversation, 3)
	assert.Equal(t, []string{"first", "first-bis", "second"},
		[]string{conversation[0].Text, conversation[1].Text, conversation[2].Text})

	forA, err := repo.ListForUser(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, forA, 4)
}

func TestMessageRepository_ReturnsCopies(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	m := &domain.Message{ID: uuid.New(), SenderID: "a", ReceiverID: "b", Text: "hi", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, m))

	m.Text = "mutated by caller"
	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)

	require.NoError(t, repo.Delete(ctx, m.ID))
	assert.ErrorIs(t, repo.Delete(ctx, m.ID), apperrors.ErrMessageNotFound)
}

func TestAlbumRepository_AttachAndStats(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	album := &domain.Album{ID: uuid.New(), Title: "Kind of Blue", Artist: "Miles Davis"}
	require.NoError(t, repos.Album.Create(ctx, album))
	song := &domain.Song{ID: uuid.New(), Title: "So What", Artist: "Miles Davis", AudioURL: "a.mp3"}
	require.NoError(t, repos.Song.Create(ctx, song))
	require.NoError(t, repos.Album.AttachSong(ctx, album.ID, song.ID))

	songs, err := repos.Song.ListByAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, songs, 1)

	assert.ErrorIs(t, repos.Album.AttachSong(ctx, uuid.New(), song.ID), apperrors.ErrAlbumNotFound)
	assert.Error(t, repos.Song.Create(ctx, &domain.Song{ID: uuid.New(), AudioURL: "a.mp3"}))

	require.NoError(t, repos.User.Upsert(ctx, &domain.User{ID: "u1"}))
	stats, err := repos.Stats.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{TotalSongs: 1, TotalAlbums: 1, TotalUsers: 1, TotalArtists: 1}, *stats)
}

func TestUserRepository_UpsertKeepsExistingFields(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.User{ID: "u1", DisplayName: "Ada", AvatarURL: "a.png", Email: "ADA@x.io"}))
	require.NoError(t, repo.Upsert(ctx, &domain.User{ID: "u1", DisplayName: "Ada L."}))

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.DisplayName)
	assert.Equal(t, "a.png", got.AvatarURL)
	assert.Equal(t, "ada@x.io", got.Email)

	others, err := repo.ListExcept(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, others)
}
