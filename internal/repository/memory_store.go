package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"weather-history/internal/models"
)

// MemoryStore is a concurrency-safe in-memory RecordStore. It backs tests
// and ad-hoc runs without a database while keeping the same append-only,
// most-recent-first contract as the Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.WeatherRecord
	nextID  int64

	// now is swappable so tests can control timestamps.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		now:    time.Now,
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// EnsureSchema is a no-op for the in-memory store.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

// Append assigns the next id and the current time, then stores a copy.
func (s *MemoryStore) Append(ctx context.Context, rec *models.WeatherRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	rec.Timestamp = s.now().UTC()

	stored := *rec
	s.records = append(s.records, &stored)
	return nil
}

// QueryAll returns copies of all records, timestamp descending, ties broken
// by descending id.
func (s *MemoryStore) QueryAll(ctx context.Context) ([]*models.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.WeatherRecord, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}
