package repository

import (
	"context"
	"errors"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AlbumRepository interface {
	Create(ctx context.Context, album *domain.Album) error
	// GetByID returns the album without its songs.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Album, error)
	List(ctx context.Context) ([]*domain.Album, error)
	Search(ctx context.Context, q string, limit int) ([]*domain.Album, error)
	AttachSong(ctx context.Context, albumID, songID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type albumRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAlbumRepository(db *pgxpool.Pool, log logger.Logger) AlbumRepository {
	return &albumRepository{db: db, log: log}
}

const albumColumns = `id, title, artist, image_url, release_year, created_at, updated_at`

func (r *albumRepository) Create(ctx context.Context, album *domain.Album) error {
	query := `INSERT INTO albums (` + albumColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		album.ID, album.Title, album.Artist, album.ImageURL, album.ReleaseYear, album.CreatedAt, album.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create album", "error", err, "title", album.Title)
		return err
	}
	return nil
}

func (r *albumRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Album, error) {
	album, err := scanAlbum(r.db.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlbumNotFound
		}
		r.log.Error("Failed to get album", "error", err, "album_id", id)
		return nil, err
	}
	return album, nil
}

func (r *albumRepository) List(ctx context.Context) ([]*domain.Album, error) {
	return r.list(ctx, `SELECT `+albumColumns+` FROM albums ORDER BY created_at DESC`)
}

func (r *albumRepository) Search(ctx context.Context, q string, limit int) ([]*domain.Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
		WHERE title ILIKE $1 OR artist ILIKE $1
		ORDER BY title
		LIMIT $2
	`
	return r.list(ctx, query, likePattern(q), limit)
}

func (r *albumRepository) AttachSong(ctx context.Context, albumID, songID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE albums SET updated_at = NOW() WHERE id = $1`, albumID)
	if err != nil {
		r.log.Error("Failed to touch album", "error", err, "album_id", albumID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlbumNotFound
	}

	tag, err = tx.Exec(ctx, `UPDATE songs SET album_id = $1, updated_at = NOW() WHERE id = $2`, albumID, songID)
	if err != nil {
		r.log.Error("Failed to attach song to album", "error", err, "album_id", albumID, "song_id", songID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSongNotFound
	}

	return tx.Commit(ctx)
}

func (r *albumRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete album", "error", err, "album_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlbumNotFound
	}
	return nil
}

func (r *albumRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Album, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list albums", "error", err)
		return nil, err
	}
	defer rows.Close()

	albums := []*domain.Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			r.log.Error("Failed to scan album", "error", err)
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}

func scanAlbum(row pgx.Row) (*domain.Album, error) {
	a := &domain.Album{Songs: []*domain.Song{}}
	err := row.Scan(&a.ID, &a.Title, &a.Artist, &a.ImageURL, &a.ReleaseYear, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
