package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"weather-history/internal/models"
	"weather-history/internal/repository"
)

func floatPtr(v float64) *float64 { return &v }

func TestWriteCSV_HeaderAndRows(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(time.Minute)}
	i := 0
	store.SetClock(func() time.Time {
		ts := stamps[i]
		i++
		return ts
	})

	wide := &models.WeatherRecord{
		City:        "Berlin",
		Latitude:    52.52,
		Longitude:   13.41,
		Temperature: floatPtr(9.5),
		Humidity:    floatPtr(55),
		WindSpeed:   floatPtr(12.3),
		UVIndex:     floatPtr(4),
	}
	narrow := &models.WeatherRecord{
		City:        "Paris",
		Latitude:    48.85,
		Longitude:   2.35,
		Temperature: floatPtr(11),
	}

	if err := store.Append(ctx, wide); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Append(ctx, narrow); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	var buf bytes.Buffer
	svc := NewExportService(store, testLogger())

	rows, err := svc.WriteCSV(ctx, &buf)
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse exported CSV: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("len(parsed) = %d, want header + 2 rows", len(parsed))
	}

	wantHeader := []string{"ID", "City", "Latitude", "Longitude", "Temperature", "Humidity", "Wind Speed", "UV Index", "Timestamp"}
	for i, col := range wantHeader {
		if parsed[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, parsed[0][i], col)
		}
	}

	// Most recent first: Paris (later timestamp) before Berlin.
	if parsed[1][1] != "Paris" || parsed[2][1] != "Berlin" {
		t.Errorf("row order = (%q, %q), want (Paris, Berlin)", parsed[1][1], parsed[2][1])
	}

	// Narrow-shape optional columns render as empty cells.
	for _, idx := range []int{5, 6, 7} {
		if parsed[1][idx] != "" {
			t.Errorf("narrow row column %d = %q, want empty", idx, parsed[1][idx])
		}
	}

	// Wide-shape values survive the round trip without precision loss.
	berlin := parsed[2]
	if berlin[4] != "9.5" || berlin[5] != "55" || berlin[6] != "12.3" || berlin[7] != "4" {
		t.Errorf("wide row values = %v, want temperature 9.5, humidity 55, wind 12.3, uv 4", berlin[4:8])
	}
}

func TestWriteCSV_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	svc := NewExportService(repository.NewMemoryStore(), testLogger())

	rows, err := svc.WriteCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if rows != 0 {
		t.Errorf("rows = %d, want 0", rows)
	}

	parsed, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse exported CSV: %v", err)
	}
	if len(parsed) != 1 {
		t.Errorf("empty export should still carry the header row, got %d rows", len(parsed))
	}
}
