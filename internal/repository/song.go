package repository

import (
	"context"
	"errors"
	"strings"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SongRepository interface {
	Create(ctx context.Context, song *domain.Song) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Song, error)
	List(ctx context.Context) ([]*domain.Song, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByAlbum(ctx context.Context, albumID uuid.UUID) (int64, error)
	Random(ctx context.Context, n int) ([]*domain.Song, error)
	Search(ctx context.Context, q string, limit int) ([]*domain.Song, error)
	ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]*domain.Song, error)
}

type songRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewSongRepository(db *pgxpool.Pool, log logger.Logger) SongRepository {
	return &songRepository{db: db, log: log}
}

const songColumns = `id, title, artist, audio_url, image_url, duration, album_id, play_count, created_at, updated_at`

func (r *songRepository) Create(ctx context.Context, song *domain.Song) error {
	query := `
		INSERT INTO songs (` + songColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		song.ID, song.Title, song.Artist, song.AudioURL, song.ImageURL, song.Duration,
		song.AlbumID, song.PlayCount, song.CreatedAt, song.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.log.Warn("Song already exists (unique violation)", "audio_url", song.AudioURL)
			return apperrors.Validation("Song with this audio already exists")
		}
		r.log.Error("Failed to create song", "error", err, "title", song.Title)
		return err
	}

	return nil
}

func (r *songRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Song, error) {
	song, err := scanSong(r.db.QueryRow(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSongNotFound
		}
		r.log.Error("Failed to get song", "error", err, "song_id", id)
		return nil, err
	}
	return song, nil
}

func (r *songRepository) List(ctx context.Context) ([]*domain.Song, error) {
	return r.list(ctx, `SELECT `+songColumns+` FROM songs ORDER BY created_at DESC`)
}

func (r *songRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete song", "error", err, "song_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSongNotFound
	}
	return nil
}

func (r *songRepository) DeleteByAlbum(ctx context.Context, albumID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM songs WHERE album_id = $1`, albumID)
	if err != nil {
		r.log.Error("Failed to delete album songs", "error", err, "album_id", albumID)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *songRepository) Random(ctx context.Context, n int) ([]*domain.Song, error) {
	return r.list(ctx, `SELECT `+songColumns+` FROM songs ORDER BY random() LIMIT $1`, n)
}

func (r *songRepository) Search(ctx context.Context, q string, limit int) ([]*domain.Song, error) {
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE title ILIKE $1 OR artist ILIKE $1
		ORDER BY title
		LIMIT $2
	`
	return r.list(ctx, query, likePattern(q), limit)
}

func (r *songRepository) ListByAlbum(ctx context.Context, albumID uuid.UUID) ([]*domain.Song, error) {
	return r.list(ctx, `SELECT `+songColumns+` FROM songs WHERE album_id = $1 ORDER BY created_at`, albumID)
}

func (r *songRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Song, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list songs", "error", err)
		return nil, err
	}
	defer rows.Close()

	songs := []*domain.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			r.log.Error("Failed to scan song", "error", err)
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func scanSong(row pgx.Row) (*domain.Song, error) {
	s := &domain.Song{}
	err := row.Scan(&s.ID, &s.Title, &s.Artist, &s.AudioURL, &s.ImageURL, &s.Duration,
		&s.AlbumID, &s.PlayCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// likePattern escapes LIKE wildcards so q is matched literally as a substring.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
