// Package scheduler runs the ingestion pipeline periodically for a fixed
// set of configured locations.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"weather-history/internal/models"
	"weather-history/internal/services"
	"weather-history/pkg/logging"
)

// Scheduler triggers a sequential ingestion batch at a fixed interval.
// Batches never overlap and the pipeline itself is sequential, so at most
// one request per provider is in flight at any time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ingestion *services.IngestionService
	locations []models.Coordinate
	interval  time.Duration
	logger    *logging.StructuredLogger
}

// New creates a scheduler over the given locations.
func New(locations []models.Coordinate, interval time.Duration, ingestion *services.IngestionService, logger *logging.StructuredLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		ingestion: ingestion,
		locations: locations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic batch and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	ctx := context.Background()

	if len(s.locations) == 0 || s.interval <= 0 {
		s.logger.Info(ctx, "[SCHEDULER_OFF] Scheduled ingestion disabled", logging.Fields{
			"locations": len(s.locations),
			"interval":  s.interval.String(),
		})
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		s.logger.Info(jobCtx, "[SCHEDULER_RUN] Running scheduled ingestion", logging.Fields{
			"locations": len(s.locations),
		})
		s.ingestion.Ingest(jobCtx, s.locations)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()

	s.logger.Info(ctx, "[SCHEDULER_START] Scheduled ingestion enabled", logging.Fields{
		"locations": len(s.locations),
		"interval":  s.interval.String(),
	})

	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
