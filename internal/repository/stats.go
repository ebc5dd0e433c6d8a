package repository

import (
	"context"

	"music_stream/internal/domain"
	"music_stream/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository interface {
	Get(ctx context.Context) (*domain.Stats, error)
}

type statsRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewStatsRepository(db *pgxpool.Pool, log logger.Logger) StatsRepository {
	return &statsRepository{db: db, log: log}
}

func (r *statsRepository) Get(ctx context.Context) (*domain.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM albums),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT artist) FROM songs)
	`

	stats := &domain.Stats{}
	err := r.db.QueryRow(ctx, query).Scan(&stats.TotalSongs, &stats.TotalAlbums, &stats.TotalUsers, &stats.TotalArtists)
	if err != nil {
		r.log.Error("Failed to get stats", "error", err)
		return nil, err
	}

	return stats, nil
}
