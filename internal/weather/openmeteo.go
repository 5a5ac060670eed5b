// Package weather fetches current observations and daily forecast
// aggregates from the Open-Meteo API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"weather-history/internal/models"
	"weather-history/pkg/httpclient"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

const providerName = "openmeteo"

// Client issues one forecast request per call against Open-Meteo.
// Failures are returned as errors and never retried; the pipeline maps
// them to a null-temperature batch entry.
type Client struct {
	baseURL      string
	forecastDays int
	client       *httpclient.Client
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewClient creates a client against the given base URL, e.g.
// "https://api.open-meteo.com/v1/forecast". forecastDays controls how many
// days of daily aggregates are requested (clamped to 1..3, the range the
// history surface displays).
func NewClient(baseURL string, forecastDays int, timeout time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	if forecastDays < 1 {
		forecastDays = 1
	} else if forecastDays > 3 {
		forecastDays = 3
	}

	return &Client{
		baseURL:      baseURL,
		forecastDays: forecastDays,
		client:       httpclient.New(providerName, timeout, ""),
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// forecastResponse is the subset of the Open-Meteo payload we read.
// Humidity is not part of current_weather and is usually absent.
type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
	} `json:"current_weather"`
	Humidity *float64 `json:"humidity"`
	Daily    *struct {
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		UVIndexMax     []float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// FetchObservation retrieves the current observation for a coordinate.
// Temperature and wind speed are extracted unconditionally on success;
// humidity and UV index stay nil when the payload omits them.
func (c *Client) FetchObservation(ctx context.Context, coord models.Coordinate) (*models.Observation, error) {
	timer := c.metrics.NewTimer(c.metrics.ProviderRequestDuration.WithLabelValues(providerName))
	defer timer.ObserveDuration()

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", coord.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", coord.Longitude))
	values.Set("current_weather", "true")
	values.Set("daily", "temperature_2m_max,temperature_2m_min,uv_index_max")
	values.Set("forecast_days", strconv.Itoa(c.forecastDays))
	values.Set("timezone", "auto")

	resp, err := c.client.Get(ctx, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()))
	if err != nil {
		c.metrics.FetchFailuresTotal.Inc()
		return nil, fmt.Errorf("weather request for %s failed: %w", coord, err)
	}
	defer resp.Body.Close()

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.metrics.FetchFailuresTotal.Inc()
		return nil, fmt.Errorf("malformed weather payload for %s: %w", coord, err)
	}

	if payload.CurrentWeather == nil {
		c.metrics.FetchFailuresTotal.Inc()
		return nil, fmt.Errorf("weather payload for %s missing current weather", coord)
	}

	obs := &models.Observation{
		TemperatureCelsius: payload.CurrentWeather.Temperature,
		WindSpeedKmh:       payload.CurrentWeather.WindSpeed,
		HumidityPercent:    payload.Humidity,
	}

	if daily := payload.Daily; daily != nil {
		if len(daily.UVIndexMax) > 0 {
			uv := daily.UVIndexMax[0]
			obs.UVIndex = &uv
		}

		for i := range daily.TemperatureMax {
			if i >= len(daily.TemperatureMin) || i >= len(daily.UVIndexMax) {
				break
			}
			obs.Daily = append(obs.Daily, models.DailyAggregate{
				MaxTemperatureCelsius: daily.TemperatureMax[i],
				MinTemperatureCelsius: daily.TemperatureMin[i],
				MaxUVIndex:            daily.UVIndexMax[i],
			})
		}
	}

	c.logger.Debug(ctx, "[WEATHER_FETCHED] Observation retrieved", logging.Fields{
		"coordinate":  coord.String(),
		"temperature": obs.TemperatureCelsius,
		"wind_speed":  obs.WindSpeedKmh,
	})

	return obs, nil
}
