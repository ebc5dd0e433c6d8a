package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"music_stream/internal/domain"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
)

const (
	featuredSongCount = 4
	searchLimit       = 20
)

type CreateSongInput struct {
	Title    string
	Artist   string
	Duration int
	AlbumID  *uuid.UUID
	Audio    *Upload
	Image    *Upload
}

type SongService interface {
	List(ctx context.Context) ([]*domain.Song, error)
	MadeForYou(ctx context.Context) ([]*domain.Song, error)
	Trending(ctx context.Context) ([]*domain.Song, error)
	Search(ctx context.Context, q string) ([]*domain.Song, error)
	// Create uploads the files, then stores the song, then links it to its album.
	Create(ctx context.Context, in CreateSongInput) (*domain.Song, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type songService struct {
	songRepo    repository.SongRepository
	albumRepo   repository.AlbumRepository
	media       MediaService
	maxFileSize int64
	log         logger.Logger
}

func NewSongService(songRepo repository.SongRepository, albumRepo repository.AlbumRepository, media MediaService, maxFileSize int64, log logger.Logger) SongService {
	return &songService{
		songRepo:    songRepo,
		albumRepo:   albumRepo,
		media:       media,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func (s *songService) List(ctx context.Context) ([]*domain.Song, error) {
	songs, err := s.songRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return songs, nil
}

func (s *songService) MadeForYou(ctx context.Context) ([]*domain.Song, error) {
	return s.random(ctx)
}

func (s *songService) Trending(ctx context.Context) ([]*domain.Song, error) {
	return s.random(ctx)
}

func (s *songService) random(ctx context.Context) ([]*domain.Song, error) {
	songs, err := s.songRepo.Random(ctx, featuredSongCount)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return songs, nil
}

func (s *songService) Search(ctx context.Context, q string) ([]*domain.Song, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.Validation("Query parameter is required")
	}
	songs, err := s.songRepo.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return songs, nil
}

func (s *songService) Create(ctx context.Context, in CreateSongInput) (*domain.Song, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if in.Title == "" || in.Artist == "" {
		return nil, apperrors.Validation("Title and artist are required")
	}
	if in.Audio == nil {
		return nil, apperrors.Validation("Audio file is required")
	}
	if in.Duration < 0 {
		return nil, apperrors.Validation("Duration must not be negative")
	}
	for _, f := range []*Upload{in.Audio, in.Image} {
		if f != nil && f.Size > s.maxFileSize {
			return nil, apperrors.Validation(fmt.Sprintf("File size must be less than %dMB", s.maxFileSize>>20))
		}
	}

	if in.AlbumID != nil {
		if _, err := s.albumRepo.GetByID(ctx, *in.AlbumID); err != nil {
			return nil, storeError(err)
		}
	}

	audio, err := s.media.Upload(ctx, in.Audio, FolderSongs)
	if err != nil {
		return nil, err
	}
	var imageURL string
	if in.Image != nil {
		image, err := s.media.Upload(ctx, in.Image, FolderImages)
		if err != nil {
			return nil, err
		}
		imageURL = image.URL
	}

	now := time.Now()
	song := &domain.Song{
		ID:        uuid.New(),
		Title:     in.Title,
		Artist:    in.Artist,
		AudioURL:  audio.URL,
		ImageURL:  imageURL,
		Duration:  in.Duration,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.songRepo.Create(ctx, song); err != nil {
		return nil, storeError(err)
	}

	if in.AlbumID != nil {
		if err := s.albumRepo.AttachSong(ctx, *in.AlbumID, song.ID); err != nil {
			s.log.Error("Song stored but album link failed", "song_id", song.ID, "album_id", *in.AlbumID, "error", err)
			return nil, storeError(err)
		}
		albumID := *in.AlbumID
		song.AlbumID = &albumID
	}

	s.log.Info("Song created", "song_id", song.ID, "title", song.Title)
	return song, nil
}

func (s *songService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.songRepo.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.log.Info("Song deleted", "song_id", id)
	return nil
}
