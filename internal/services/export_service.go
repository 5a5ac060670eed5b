package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"weather-history/internal/models"
	"weather-history/internal/repository"
	"weather-history/pkg/logging"
)

// csvHeader matches the persisted column list; optional columns render as
// empty cells when NULL.
var csvHeader = []string{"ID", "City", "Latitude", "Longitude", "Temperature", "Humidity", "Wind Speed", "UV Index", "Timestamp"}

// ExportService serializes the stored history to flat CSV.
type ExportService struct {
	store  repository.RecordStore
	logger *logging.StructuredLogger
}

// NewExportService creates a new export service
func NewExportService(store repository.RecordStore, logger *logging.StructuredLogger) *ExportService {
	return &ExportService{
		store:  store,
		logger: logger,
	}
}

// WriteCSV streams the full history as CSV, header first, in the store's
// most-recent-first order. Returns the number of exported rows.
func (s *ExportService) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.QueryAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read history: %w", err)
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		if err := writer.Write(recordRow(rec)); err != nil {
			return 0, fmt.Errorf("failed to write record %d: %w", rec.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}

	s.logger.Info(ctx, "[EXPORT_COMPLETE] History exported", logging.Fields{
		"rows": len(records),
	})

	return len(records), nil
}

func recordRow(rec *models.WeatherRecord) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.City,
		formatFloat(rec.Latitude),
		formatFloat(rec.Longitude),
		formatOptional(rec.Temperature),
		formatOptional(rec.Humidity),
		formatOptional(rec.WindSpeed),
		formatOptional(rec.UVIndex),
		rec.Timestamp.UTC().Format(time.RFC3339),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
