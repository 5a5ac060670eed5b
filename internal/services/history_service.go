package services

import (
	"context"

	"weather-history/internal/models"
	"weather-history/internal/repository"
	"weather-history/pkg/logging"
)

// HistoryService is the read path over the record store.
type HistoryService struct {
	store  repository.RecordStore
	logger *logging.StructuredLogger
}

// NewHistoryService creates a new history service
func NewHistoryService(store repository.RecordStore, logger *logging.StructuredLogger) *HistoryService {
	return &HistoryService{
		store:  store,
		logger: logger,
	}
}

// QueryAll returns the full stored history, most recent first.
func (s *HistoryService) QueryAll(ctx context.Context) ([]*models.WeatherRecord, error) {
	return s.store.QueryAll(ctx)
}

// HealthCheck verifies the underlying store is reachable.
func (s *HistoryService) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}
