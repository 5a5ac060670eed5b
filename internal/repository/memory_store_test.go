package repository

import (
	"context"
	"testing"
	"time"

	"weather-history/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func newTestRecord(city string, temperature float64) *models.WeatherRecord {
	return &models.WeatherRecord{
		City:        city,
		Latitude:    52.52,
		Longitude:   13.41,
		Temperature: &temperature,
	}
}

func TestMemoryStore_AppendAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 3; i++ {
		rec := newTestRecord("Berlin", 9.5)
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if rec.ID != int64(i+1) {
			t.Errorf("ID = %d, want %d", rec.ID, i+1)
		}
		if rec.Timestamp.IsZero() {
			t.Error("Timestamp should be assigned by the store")
		}
	}
}

func TestMemoryStore_QueryAllOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Fixed clock: first two appends share a second, the third is older.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base, base.Add(-time.Hour)}
	i := 0
	store.SetClock(func() time.Time {
		ts := stamps[i]
		i++
		return ts
	})

	for _, city := range []string{"Berlin", "Paris", "Tokyo"} {
		if err := store.Append(ctx, newTestRecord(city, 10)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	records, err := store.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	// Equal timestamps resolve by descending id, the older row comes last.
	wantCities := []string{"Paris", "Berlin", "Tokyo"}
	for idx, want := range wantCities {
		if records[idx].City != want {
			t.Errorf("records[%d].City = %q, want %q", idx, records[idx].City, want)
		}
	}

	if records[0].ID != 2 || records[1].ID != 1 {
		t.Errorf("tie-break order = (%d, %d), want (2, 1)", records[0].ID, records[1].ID)
	}
}

func TestMemoryStore_WideFieldsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec := newTestRecord("Berlin", 9.5)
	rec.Humidity = floatPtr(55)
	rec.WindSpeed = floatPtr(12.3)
	rec.UVIndex = floatPtr(4)

	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	got := records[0]
	if got.Humidity == nil || *got.Humidity != 55 {
		t.Errorf("Humidity = %v, want 55", got.Humidity)
	}
	if got.WindSpeed == nil || *got.WindSpeed != 12.3 {
		t.Errorf("WindSpeed = %v, want 12.3", got.WindSpeed)
	}
	if got.UVIndex == nil || *got.UVIndex != 4 {
		t.Errorf("UVIndex = %v, want 4", got.UVIndex)
	}
	if got.Temperature == nil || *got.Temperature != 9.5 {
		t.Errorf("Temperature = %v, want 9.5", got.Temperature)
	}
}

func TestMemoryStore_QueryAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Append(ctx, newTestRecord("Berlin", 9.5)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	first, _ := store.QueryAll(ctx)
	first[0].City = "mutated"

	second, _ := store.QueryAll(ctx)
	if second[0].City != "Berlin" {
		t.Errorf("stored record mutated through query result: City = %q", second[0].City)
	}
}
