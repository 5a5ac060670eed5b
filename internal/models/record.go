package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinate is a query point supplied by the caller. The same coordinate
// may be submitted repeatedly; every submission produces its own history row.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the coordinate for logs and error messages.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// ParseCoordinate parses latitude and longitude from operator input.
// Range checking is left to the providers; only numeric parsing is enforced.
func ParseCoordinate(latitude, longitude string) (Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latitude), 64)
	if err != nil {
		return Coordinate{}, &InvalidInputError{Field: "latitude", Value: latitude}
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(longitude), 64)
	if err != nil {
		return Coordinate{}, &InvalidInputError{Field: "longitude", Value: longitude}
	}

	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ResolutionStatus classifies the outcome of a reverse-geocoding lookup.
type ResolutionStatus int

const (
	// ResolutionOK means the provider returned a usable place name.
	ResolutionOK ResolutionStatus = iota
	// ResolutionNotFound means the provider answered but carried none of
	// the city/town/village/hamlet fields.
	ResolutionNotFound
	// ResolutionRequestError means the lookup itself failed (non-200,
	// transport error, malformed payload).
	ResolutionRequestError
)

// String returns the status label used in logs and metrics.
func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionOK:
		return "resolved"
	case ResolutionNotFound:
		return "not_found"
	case ResolutionRequestError:
		return "request_error"
	default:
		return "unknown"
	}
}

// SentinelPlaceName is the display value substituted when a coordinate
// could not be resolved to a settlement name.
const SentinelPlaceName = "Unknown place"

// PlaceResolution is the tagged result of a reverse-geocoding lookup.
// A failed lookup is a value, not an error: resolution never aborts a batch.
type PlaceResolution struct {
	Name   string
	Status ResolutionStatus
}

// Resolved reports whether the lookup produced a genuine place name.
func (r PlaceResolution) Resolved() bool {
	return r.Status == ResolutionOK
}

// DisplayName degrades both failure states to the display sentinel.
func (r PlaceResolution) DisplayName() string {
	if r.Status == ResolutionOK {
		return r.Name
	}
	return SentinelPlaceName
}

// DailyAggregate is one day of forecast aggregates from the weather provider.
type DailyAggregate struct {
	MaxTemperatureCelsius float64 `json:"max_temperature_celsius"`
	MinTemperatureCelsius float64 `json:"min_temperature_celsius"`
	MaxUVIndex            float64 `json:"max_uv_index"`
}

// Observation is a transient set of current weather measurements.
// Humidity and UV index are pointers because the provider omits them for
// some locations; absent values stay nil rather than defaulting to zero.
type Observation struct {
	TemperatureCelsius float64          `json:"temperature_celsius"`
	WindSpeedKmh       float64          `json:"wind_speed_kmh"`
	HumidityPercent    *float64         `json:"humidity_percent,omitempty"`
	UVIndex            *float64         `json:"uv_index,omitempty"`
	Daily              []DailyAggregate `json:"daily,omitempty"`
}

// WeatherRecord is the persisted unit of history. The store assigns ID and
// Timestamp at insert time; rows are never updated or deleted. Rows written
// before the schema grew its optional columns simply leave them NULL.
type WeatherRecord struct {
	ID          int64     `json:"id" db:"id"`
	City        string    `json:"city" db:"city"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	Temperature *float64  `json:"temperature" db:"temperature"`
	Humidity    *float64  `json:"humidity" db:"humidity"`
	WindSpeed   *float64  `json:"wind_speed" db:"wind_speed"`
	UVIndex     *float64  `json:"uv_index" db:"uv_index"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// NewWeatherRecord builds the persisted record for a successful fetch.
func NewWeatherRecord(place PlaceResolution, coord Coordinate, obs *Observation) *WeatherRecord {
	temperature := obs.TemperatureCelsius
	windSpeed := obs.WindSpeedKmh

	return &WeatherRecord{
		City:        place.DisplayName(),
		Latitude:    coord.Latitude,
		Longitude:   coord.Longitude,
		Temperature: &temperature,
		Humidity:    obs.HumidityPercent,
		WindSpeed:   &windSpeed,
		UVIndex:     obs.UVIndex,
	}
}

// BatchEntry is the in-memory summary produced for every input coordinate.
// Temperature is nil when the weather fetch failed for that location.
type BatchEntry struct {
	City        string   `json:"city"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Temperature *float64 `json:"temperature"`
}

// InvalidInputError reports non-numeric operator input.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: numeric value expected", e.Field, e.Value)
}
