// Package geocode resolves coordinates to settlement names via the
// Nominatim reverse-geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"weather-history/internal/models"
	"weather-history/pkg/httpclient"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

const providerName = "nominatim"

// Resolver issues one reverse lookup per call. No batching, no caching,
// no retry. Lookup failures are absorbed into the returned resolution
// value and never surfaced as errors.
type Resolver struct {
	baseURL string
	client  *httpclient.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewResolver creates a resolver against the given Nominatim base URL,
// e.g. "https://nominatim.openstreetmap.org".
func NewResolver(baseURL, userAgent string, timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		client:  httpclient.New(providerName, timeout, userAgent),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// reverseResponse is the subset of the Nominatim payload we read.
// The address object carries at most one settlement-level field per scale.
type reverseResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Hamlet  string `json:"hamlet"`
	} `json:"address"`
}

// Resolve looks up the settlement name for a coordinate. The first present
// field in the order city > town > village > hamlet wins; that ordering
// favors the terms most likely to exist for the queried point.
func (r *Resolver) Resolve(ctx context.Context, coord models.Coordinate) models.PlaceResolution {
	timer := r.metrics.NewTimer(r.metrics.ProviderRequestDuration.WithLabelValues(providerName))
	defer timer.ObserveDuration()

	resolution := r.lookup(ctx, coord)
	r.metrics.RecordGeocodeResult(resolution.Status.String())

	switch resolution.Status {
	case models.ResolutionNotFound:
		r.logger.Warn(ctx, "[GEOCODE_NOT_FOUND] No settlement name for coordinate", logging.Fields{
			"coordinate": coord.String(),
		})
	case models.ResolutionRequestError:
		r.logger.Warn(ctx, "[GEOCODE_ERROR] Reverse lookup failed", logging.Fields{
			"coordinate": coord.String(),
		})
	}

	return resolution
}

func (r *Resolver) lookup(ctx context.Context, coord models.Coordinate) models.PlaceResolution {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", coord.Latitude))
	values.Set("lon", fmt.Sprintf("%f", coord.Longitude))
	values.Set("format", "json")

	resp, err := r.client.Get(ctx, fmt.Sprintf("%s/reverse?%s", r.baseURL, values.Encode()))
	if err != nil {
		return models.PlaceResolution{Status: models.ResolutionRequestError}
	}
	defer resp.Body.Close()

	var payload reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.PlaceResolution{Status: models.ResolutionRequestError}
	}

	for _, name := range []string{
		payload.Address.City,
		payload.Address.Town,
		payload.Address.Village,
		payload.Address.Hamlet,
	} {
		if name != "" {
			return models.PlaceResolution{Name: name, Status: models.ResolutionOK}
		}
	}

	return models.PlaceResolution{Status: models.ResolutionNotFound}
}
