package service

import (
	"errors"

	"music_stream/internal/config"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"
)

type Services struct {
	User      UserService
	Song      SongService
	Album     AlbumService
	Stats     StatsService
	Message   MessageService
	Presence  PresenceService
	Media     MediaService
	RateLimit RateLimitService
	Audit     AuditService
}

func NewServices(repos *repository.Repositories, notifier Notifier, cfg *config.Config, log logger.Logger) *Services {
	media := NewMediaService(cfg.Media, log)

	return &Services{
		User:     NewUserService(repos.User, log),
		Song:     NewSongService(repos.Song, repos.Album, media, cfg.Upload.MaxFileSize, log),
		Album:    NewAlbumService(repos.Album, repos.Song, media, cfg.Upload.MaxFileSize, log),
		Stats:    NewStatsService(repos.Stats, log),
		Message:  NewMessageService(repos.Message, repos.User, media, notifier, cfg.Upload.ChatMaxFileSize, log),
		Presence: NewPresenceService(repos.Presence, notifier, PresenceOptions{
			IdleTimeout:   cfg.Presence.IdleTimeout,
			SweepInterval: cfg.Presence.SweepInterval,
		}, log),
		Media:     media,
		RateLimit: NewRateLimitService(repos.RateLimit, cfg.RateLimit.PerMinute, log),
		Audit:     NewAuditService(repos.Audit, log),
	}
}

// storeError passes through errors callers can act on and hides the rest.
func storeError(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) {
		return err
	}
	return apperrors.Internal(err)
}
