package services

import (
	"context"
	"time"

	"weather-history/internal/models"
	"weather-history/internal/repository"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// PlaceResolver resolves a coordinate to a settlement name. Resolution
// failure is a value, never an error.
type PlaceResolver interface {
	Resolve(ctx context.Context, coord models.Coordinate) models.PlaceResolution
}

// ObservationFetcher retrieves the current weather observation for a
// coordinate. A failed fetch is reported as an error.
type ObservationFetcher interface {
	FetchObservation(ctx context.Context, coord models.Coordinate) (*models.Observation, error)
}

// IngestionService runs the per-location resolve, fetch, persist pipeline.
// It is stateless across invocations; each Ingest call is independent.
type IngestionService struct {
	resolver PlaceResolver
	fetcher  ObservationFetcher
	store    repository.RecordStore
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	resolver PlaceResolver,
	fetcher ObservationFetcher,
	store repository.RecordStore,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *IngestionService {
	return &IngestionService{
		resolver: resolver,
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// Ingest processes the coordinates strictly in input order, one location at
// a time: at most one outbound request per provider is in flight, which is
// what the free providers' courtesy limits allow. The result always has one
// entry per input coordinate; a location's failure never aborts the rest of
// the batch. Ingest itself returns no error.
func (s *IngestionService) Ingest(ctx context.Context, coords []models.Coordinate) []models.BatchEntry {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting ingestion batch", logging.Fields{
		"locations": len(coords),
	})

	entries := make([]models.BatchEntry, 0, len(coords))
	appended := 0

	for _, coord := range coords {
		entries = append(entries, s.ingestOne(ctx, coord, &appended))
	}

	duration := time.Since(startTime)
	s.metrics.IngestionBatchSize.Observe(float64(len(coords)))
	s.metrics.IngestionBatchDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Ingestion batch completed", logging.Fields{
		"locations":        len(coords),
		"records_appended": appended,
		"duration_seconds": duration.Seconds(),
	})

	return entries
}

// ingestOne runs the resolve-fetch-persist sequence for a single location.
func (s *IngestionService) ingestOne(ctx context.Context, coord models.Coordinate, appended *int) models.BatchEntry {
	s.metrics.LocationsProcessedTotal.Inc()

	place := s.resolver.Resolve(ctx, coord)

	entry := models.BatchEntry{
		City:      place.DisplayName(),
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
	}

	obs, err := s.fetcher.FetchObservation(ctx, coord)
	if err != nil {
		// Fetch failure: no row is written, the entry keeps a nil
		// temperature, and the remaining locations proceed.
		s.metrics.RecordIngestionError("fetch_failed")
		s.logger.Warn(ctx, "[INGEST_FETCH_FAILED] Weather fetch failed", logging.Fields{
			"coordinate": coord.String(),
			"city":       entry.City,
			"reason":     err.Error(),
		})
		return entry
	}

	temperature := obs.TemperatureCelsius
	entry.Temperature = &temperature

	rec := models.NewWeatherRecord(place, coord, obs)
	if err := s.store.Append(ctx, rec); err != nil {
		// The record is lost but the batch continues; the fetched
		// temperature is still reported to the caller.
		s.metrics.RecordIngestionError("persistence_failed")
		s.logger.Error(ctx, "[INGEST_PERSIST_FAILED] Failed to append record", logging.Fields{
			"coordinate": coord.String(),
			"city":       entry.City,
		}, err)
		return entry
	}

	*appended++
	s.metrics.RecordsAppendedTotal.Inc()

	s.logger.Info(ctx, "[INGEST_LOCATION] Location ingested", logging.Fields{
		"coordinate":  coord.String(),
		"city":        entry.City,
		"temperature": temperature,
		"record_id":   rec.ID,
	})

	return entry
}
