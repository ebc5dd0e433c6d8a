// Package memory holds process-local repositories. They back STORAGE_BACKEND=memory
// and PRESENCE_BACKEND=memory and double as fakes in service and handler tests.
package memory

import (
	"music_stream/internal/repository"
)

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.SongRepository    = (*SongRepository)(nil)
	_ repository.AlbumRepository   = (*AlbumRepository)(nil)
	_ repository.MessageRepository = (*MessageRepository)(nil)
	_ repository.StatsRepository   = (*StatsRepository)(nil)
	_ repository.PresenceStore     = (*PresenceStore)(nil)
	_ repository.AuditRepository   = (*AuditRepository)(nil)
)

func NewRepositories() *repository.Repositories {
	users := NewUserRepository()
	songs := NewSongRepository()
	albums := NewAlbumRepository(songs)

	return &repository.Repositories{
		User:     users,
		Song:     songs,
		Album:    albums,
		Message:  NewMessageRepository(),
		Stats:    NewStatsRepository(users, songs, albums),
		Presence: NewPresenceStore(),
		Audit:    NewAuditRepository(),
	}
}
