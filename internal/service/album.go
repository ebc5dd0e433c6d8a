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

type CreateAlbumInput struct {
	Title       string
	Artist      string
	ReleaseYear int
	Image       *Upload
}

type AlbumService interface {
	List(ctx context.Context) ([]*domain.Album, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Album, error)
	Search(ctx context.Context, q string) ([]*domain.Album, error)
	Create(ctx context.Context, in CreateAlbumInput) (*domain.Album, error)
	// Delete removes the album together with its songs.
	Delete(ctx context.Context, id uuid.UUID) error
}

type albumService struct {
	albumRepo   repository.AlbumRepository
	songRepo    repository.SongRepository
	media       MediaService
	maxFileSize int64
	log         logger.Logger
}

func NewAlbumService(albumRepo repository.AlbumRepository, songRepo repository.SongRepository, media MediaService, maxFileSize int64, log logger.Logger) AlbumService {
	return &albumService{
		albumRepo:   albumRepo,
		songRepo:    songRepo,
		media:       media,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

func (s *albumService) List(ctx context.Context) ([]*domain.Album, error) {
	albums, err := s.albumRepo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return albums, nil
}

func (s *albumService) Get(ctx context.Context, id uuid.UUID) (*domain.Album, error) {
	album, err := s.albumRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	songs, err := s.songRepo.ListByAlbum(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	album.Songs = songs
	return album, nil
}

func (s *albumService) Search(ctx context.Context, q string) ([]*domain.Album, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.Validation("Query parameter is required")
	}
	albums, err := s.albumRepo.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return albums, nil
}

func (s *albumService) Create(ctx context.Context, in CreateAlbumInput) (*domain.Album, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if in.Title == "" || in.Artist == "" {
		return nil, apperrors.Validation("Title and artist are required")
	}
	if in.Image == nil {
		return nil, apperrors.Validation("Image file is required")
	}
	if in.Image.Size > s.maxFileSize {
		return nil, apperrors.Validation(fmt.Sprintf("File size must be less than %dMB", s.maxFileSize>>20))
	}

	image, err := s.media.Upload(ctx, in.Image, FolderImages)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	album := &domain.Album{
		ID:          uuid.New(),
		Title:       in.Title,
		Artist:      in.Artist,
		ImageURL:    image.URL,
		ReleaseYear: in.ReleaseYear,
		Songs:       []*domain.Song{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.albumRepo.Create(ctx, album); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.Info("Album created", "album_id", album.ID, "title", album.Title)
	return album, nil
}

func (s *albumService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.albumRepo.GetByID(ctx, id); err != nil {
		return storeError(err)
	}
	removed, err := s.songRepo.DeleteByAlbum(ctx, id)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.albumRepo.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	s.log.Info("Album deleted", "album_id", id, "songs_removed", removed)
	return nil
}
