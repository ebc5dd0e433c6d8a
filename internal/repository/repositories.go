package repository

import (
	"music_stream/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	User      UserRepository
	Song      SongRepository
	Album     AlbumRepository
	Message   MessageRepository
	Stats     StatsRepository
	RateLimit RateLimitRepository
	Presence  PresenceStore
	Audit     AuditRepository
}

// NewRepositories wires the postgres content store. Presence and rate limiting
// depend on the configured backends and are attached by the caller.
func NewRepositories(db *pgxpool.Pool, log logger.Logger) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db, log),
		Song:    NewSongRepository(db, log),
		Album:   NewAlbumRepository(db, log),
		Message: NewMessageRepository(db, log),
		Stats:   NewStatsRepository(db, log),
		Audit:   NewAuditRepository(db, log),
	}
}
