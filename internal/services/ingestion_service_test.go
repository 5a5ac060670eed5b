package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weather-history/internal/geocode"
	"weather-history/internal/models"
	"weather-history/internal/repository"
	"weather-history/internal/weather"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

// One collector per test binary: promauto registers against the default
// prometheus registry.
var testMetrics = metrics.NewCollector("services_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

type stubResolver struct {
	resolutions map[string]models.PlaceResolution
}

func (r *stubResolver) Resolve(ctx context.Context, coord models.Coordinate) models.PlaceResolution {
	if res, ok := r.resolutions[coord.String()]; ok {
		return res
	}
	return models.PlaceResolution{Status: models.ResolutionNotFound}
}

type stubFetcher struct {
	observations map[string]*models.Observation
	failFor      map[string]bool
}

func (f *stubFetcher) FetchObservation(ctx context.Context, coord models.Coordinate) (*models.Observation, error) {
	if f.failFor[coord.String()] {
		return nil, errors.New("provider unavailable")
	}
	if obs, ok := f.observations[coord.String()]; ok {
		return obs, nil
	}
	return nil, errors.New("no observation configured")
}

// failingStore rejects every append.
type failingStore struct {
	repository.MemoryStore
}

func (s *failingStore) Append(ctx context.Context, rec *models.WeatherRecord) error {
	return errors.New("write rejected")
}

func TestIngest_PreservesLengthAndOrder(t *testing.T) {
	coords := []models.Coordinate{
		{Latitude: 52.52, Longitude: 13.41},
		{Latitude: 48.85, Longitude: 2.35},
		{Latitude: 40.71, Longitude: -74.01},
	}

	resolver := &stubResolver{resolutions: map[string]models.PlaceResolution{
		coords[0].String(): {Name: "Berlin", Status: models.ResolutionOK},
		coords[1].String(): {Name: "Paris", Status: models.ResolutionOK},
	}}
	fetcher := &stubFetcher{
		observations: map[string]*models.Observation{
			coords[0].String(): {TemperatureCelsius: 9.5, WindSpeedKmh: 12},
			coords[2].String(): {TemperatureCelsius: 17.2, WindSpeedKmh: 8},
		},
		failFor: map[string]bool{coords[1].String(): true},
	}

	svc := NewIngestionService(resolver, fetcher, repository.NewMemoryStore(), testLogger(), testMetrics)
	entries := svc.Ingest(context.Background(), coords)

	if len(entries) != len(coords) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(coords))
	}
	for i, entry := range entries {
		if entry.Latitude != coords[i].Latitude || entry.Longitude != coords[i].Longitude {
			t.Errorf("entries[%d] coordinate = (%v, %v), want %v", i, entry.Latitude, entry.Longitude, coords[i])
		}
	}
	if entries[0].City != "Berlin" || entries[1].City != "Paris" {
		t.Errorf("cities = (%q, %q), want (Berlin, Paris)", entries[0].City, entries[1].City)
	}
	// Unresolved place degrades to the sentinel but keeps its entry.
	if entries[2].City != models.SentinelPlaceName {
		t.Errorf("entries[2].City = %q, want sentinel", entries[2].City)
	}
}

func TestIngest_SuccessWritesExactlyOneRow(t *testing.T) {
	coord := models.Coordinate{Latitude: 52.52, Longitude: 13.41}
	store := repository.NewMemoryStore()

	resolver := &stubResolver{resolutions: map[string]models.PlaceResolution{
		coord.String(): {Name: "Berlin", Status: models.ResolutionOK},
	}}
	fetcher := &stubFetcher{observations: map[string]*models.Observation{
		coord.String(): {TemperatureCelsius: 9.5, WindSpeedKmh: 12.3},
	}}

	svc := NewIngestionService(resolver, fetcher, store, testLogger(), testMetrics)
	entries := svc.Ingest(context.Background(), []models.Coordinate{coord})

	if entries[0].Temperature == nil || *entries[0].Temperature != 9.5 {
		t.Errorf("Temperature = %v, want 9.5", entries[0].Temperature)
	}

	records, _ := store.QueryAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.City != "Berlin" || rec.Latitude != 52.52 || rec.Longitude != 13.41 {
		t.Errorf("stored record = %+v, want Berlin at (52.52, 13.41)", rec)
	}
	if rec.Temperature == nil || *rec.Temperature != 9.5 {
		t.Errorf("stored Temperature = %v, want 9.5", rec.Temperature)
	}
	if rec.WindSpeed == nil || *rec.WindSpeed != 12.3 {
		t.Errorf("stored WindSpeed = %v, want 12.3", rec.WindSpeed)
	}
}

func TestIngest_FetchFailureIsIsolated(t *testing.T) {
	coords := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	}
	store := repository.NewMemoryStore()

	resolver := &stubResolver{resolutions: map[string]models.PlaceResolution{
		coords[0].String(): {Name: "Null Island", Status: models.ResolutionOK},
		coords[1].String(): {Name: "One One", Status: models.ResolutionOK},
	}}
	fetcher := &stubFetcher{
		observations: map[string]*models.Observation{
			coords[0].String(): {TemperatureCelsius: 28.0, WindSpeedKmh: 5},
		},
		failFor: map[string]bool{coords[1].String(): true},
	}

	svc := NewIngestionService(resolver, fetcher, store, testLogger(), testMetrics)
	entries := svc.Ingest(context.Background(), coords)

	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Temperature == nil {
		t.Error("entries[0].Temperature should be set")
	}
	if entries[1].Temperature != nil {
		t.Errorf("entries[1].Temperature = %v, want nil", *entries[1].Temperature)
	}

	records, _ := store.QueryAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("stored rows = %d, want 1 (failed location must not write)", len(records))
	}
	if records[0].City != "Null Island" {
		t.Errorf("stored City = %q, want %q", records[0].City, "Null Island")
	}
}

func TestIngest_PersistenceFailureDoesNotAbortBatch(t *testing.T) {
	coords := []models.Coordinate{
		{Latitude: 52.52, Longitude: 13.41},
		{Latitude: 48.85, Longitude: 2.35},
	}

	resolver := &stubResolver{resolutions: map[string]models.PlaceResolution{}}
	fetcher := &stubFetcher{observations: map[string]*models.Observation{
		coords[0].String(): {TemperatureCelsius: 9.5},
		coords[1].String(): {TemperatureCelsius: 11.0},
	}}

	svc := NewIngestionService(resolver, fetcher, &failingStore{}, testLogger(), testMetrics)
	entries := svc.Ingest(context.Background(), coords)

	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	// The fetch succeeded, so the entries still carry real temperatures
	// even though the rows were lost.
	if entries[0].Temperature == nil || *entries[0].Temperature != 9.5 {
		t.Errorf("entries[0].Temperature = %v, want 9.5", entries[0].Temperature)
	}
	if entries[1].Temperature == nil || *entries[1].Temperature != 11.0 {
		t.Errorf("entries[1].Temperature = %v, want 11.0", entries[1].Temperature)
	}
}

// End-to-end against fake providers: real geocode and weather clients,
// in-memory store.
func TestIngest_EndToEnd(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"address":{"city":"Berlin"}}`)
	}))
	defer geoSrv.Close()

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current_weather":{"temperature":9.5,"windspeed":12.3}}`)
	}))
	defer weatherSrv.Close()

	logger := testLogger()
	store := repository.NewMemoryStore()
	resolver := geocode.NewResolver(geoSrv.URL, "weather-history-test", 5*time.Second, logger, testMetrics)
	fetcher := weather.NewClient(weatherSrv.URL, 3, 5*time.Second, logger, testMetrics)

	svc := NewIngestionService(resolver, fetcher, store, logger, testMetrics)
	entries := svc.Ingest(context.Background(), []models.Coordinate{{Latitude: 52.52, Longitude: 13.41}})

	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.City != "Berlin" || entry.Latitude != 52.52 || entry.Longitude != 13.41 {
		t.Errorf("entry = %+v, want Berlin at (52.52, 13.41)", entry)
	}
	if entry.Temperature == nil || *entry.Temperature != 9.5 {
		t.Errorf("entry.Temperature = %v, want 9.5", entry.Temperature)
	}

	records, _ := store.QueryAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(records))
	}
	if records[0].City != "Berlin" || records[0].Temperature == nil || *records[0].Temperature != 9.5 {
		t.Errorf("stored record = %+v, want Berlin at 9.5", records[0])
	}
}

func TestIngest_EndToEnd_SecondLocationFails(t *testing.T) {
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"address":{"town":"Smallville"}}`)
	}))
	defer geoSrv.Close()

	var weatherCalls int
	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		weatherCalls++
		if weatherCalls > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"current_weather":{"temperature":21.0,"windspeed":4.0}}`)
	}))
	defer weatherSrv.Close()

	logger := testLogger()
	store := repository.NewMemoryStore()
	resolver := geocode.NewResolver(geoSrv.URL, "weather-history-test", 5*time.Second, logger, testMetrics)
	fetcher := weather.NewClient(weatherSrv.URL, 1, 5*time.Second, logger, testMetrics)

	svc := NewIngestionService(resolver, fetcher, store, logger, testMetrics)
	entries := svc.Ingest(context.Background(), []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	})

	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Temperature == nil || *entries[0].Temperature != 21.0 {
		t.Errorf("entries[0].Temperature = %v, want 21.0", entries[0].Temperature)
	}
	if entries[1].Temperature != nil {
		t.Errorf("entries[1].Temperature = %v, want nil", *entries[1].Temperature)
	}

	records, _ := store.QueryAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(records))
	}
}
