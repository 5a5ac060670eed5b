package repository

import (
	"context"
	"fmt"

	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// RecordStore is the append-only history of weather records.
type RecordStore interface {
	// EnsureSchema creates the history table if absent. Idempotent and
	// safe to call on every process start.
	EnsureSchema(ctx context.Context) error

	// Append inserts a new row. The store assigns ID and Timestamp and
	// commits durably before returning; rec is updated in place.
	Append(ctx context.Context, rec *models.WeatherRecord) error

	// QueryAll returns every stored record sorted by timestamp descending,
	// ties broken by descending id. Full scan, no pagination: the store is
	// a local single-tenant history.
	QueryAll(ctx context.Context) ([]*models.WeatherRecord, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}

const createRecordsTable = `
	CREATE TABLE IF NOT EXISTS weather_records (
		id          BIGSERIAL PRIMARY KEY,
		city        TEXT NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL,
		temperature DOUBLE PRECISION,
		humidity    DOUBLE PRECISION,
		wind_speed  DOUBLE PRECISION,
		uv_index    DOUBLE PRECISION,
		timestamp   TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// recordStore implements RecordStore on PostgreSQL
type recordStore struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRecordStore creates a Postgres-backed record store
func NewRecordStore(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) RecordStore {
	return &recordStore{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// EnsureSchema creates the weather_records table if it does not exist
func (s *recordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "ensure_schema", createRecordsTable); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	s.logger.Debug(ctx, "[STORE_SCHEMA] History table ensured", logging.Fields{
		"table": "weather_records",
	})

	return nil
}

// Append inserts one record inside its own transaction scope
func (s *recordStore) Append(ctx context.Context, rec *models.WeatherRecord) error {
	query := `
		INSERT INTO weather_records (city, latitude, longitude, temperature, humidity, wind_speed, uv_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, timestamp
	`

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, query,
		rec.City,
		rec.Latitude,
		rec.Longitude,
		rec.Temperature,
		rec.Humidity,
		rec.WindSpeed,
		rec.UVIndex,
	).Scan(&rec.ID, &rec.Timestamp)

	if err != nil {
		s.metrics.RecordDBError("append_error")
		return fmt.Errorf("failed to append record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.metrics.RecordDBError("append_commit_error")
		return fmt.Errorf("failed to commit record: %w", err)
	}

	s.logger.Debug(ctx, "[STORE_APPEND] Record appended", logging.Fields{
		"record_id": rec.ID,
		"city":      rec.City,
	})

	return nil
}

// QueryAll returns the whole history, most recent first
func (s *recordStore) QueryAll(ctx context.Context) ([]*models.WeatherRecord, error) {
	query := `
		SELECT id, city, latitude, longitude, temperature, humidity, wind_speed, uv_index, timestamp
		FROM weather_records
		ORDER BY timestamp DESC, id DESC
	`

	var records []*models.WeatherRecord
	if err := s.db.SelectContext(ctx, "query_all_records", &records, query); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	return records, nil
}

// HealthCheck performs a store health check
func (s *recordStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}
