package services

import (
	"context"
	"fmt"

	"github.com/whatifmusic/beatwave/internal/models"
	"go.uber.org/zap"
)

// StatsRepository reads the dashboard counters
type StatsRepository interface {
	GetStats(ctx context.Context) (*models.Stats, error)
}

type statsService struct {
	repo   StatsRepository
	logger *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(repo StatsRepository, logger *zap.Logger) *statsService {
	return &statsService{
		repo:   repo,
		logger: logger,
	}
}

// GetStats returns item counts per type, the total number of downloads and subscribers
func (s *statsService) GetStats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		s.logger.Error("failed to get stats", zap.Error(err))
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
