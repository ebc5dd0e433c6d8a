package service

import (
	"context"

	"music_stream/internal/domain"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"
)

type StatsService interface {
	Get(ctx context.Context) (*domain.Stats, error)
}

type statsService struct {
	statsRepo repository.StatsRepository
	log       logger.Logger
}

func NewStatsService(statsRepo repository.StatsRepository, log logger.Logger) StatsService {
	return &statsService{
		statsRepo: statsRepo,
		log:       log,
	}
}

func (s *statsService) Get(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.statsRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return stats, nil
}
