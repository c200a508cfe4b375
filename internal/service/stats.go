package service

import (
	"context"

	"vanish/internal/domain"
	"vanish/internal/repository"
	"vanish/pkg/logger"
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
	return s.statsRepo.Get(ctx)
}
