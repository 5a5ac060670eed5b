package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"weather-history/internal/models"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ProvidersConfig holds the external geocoding and forecast endpoints
type ProvidersConfig struct {
	GeocodingURL   string
	ForecastURL    string
	UserAgent      string
	RequestTimeout time.Duration
	ForecastDays   int
}

// IngestionConfig holds the locations to ingest and the scheduler interval.
// An interval of zero disables scheduled ingestion.
type IngestionConfig struct {
	Locations []models.Coordinate
	Interval  time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Config is the process-wide configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	Ingestion IngestionConfig
	Logging   LoggingConfig
}

// LoadConfig reads configuration from the environment, optionally seeded
// from a .env file, with defaults suited to local development.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getenvDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getenvInt("SERVER_PORT", 8080),
			ReadTimeout:  getenvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getenvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getenvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getenvDefault("DB_HOST", "localhost"),
			Port:            getenvInt("DB_PORT", 5432),
			User:            getenvDefault("DB_USER", "postgres"),
			Password:        getenvDefault("DB_PASSWORD", "postgres"),
			Database:        getenvDefault("DB_NAME", "weather_history"),
			SSLMode:         getenvDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Providers: ProvidersConfig{
			GeocodingURL:   getenvDefault("GEOCODING_URL", "https://nominatim.openstreetmap.org"),
			ForecastURL:    getenvDefault("FORECAST_URL", "https://api.open-meteo.com/v1/forecast"),
			UserAgent:      getenvDefault("GEOCODING_USER_AGENT", "weather-history"),
			RequestTimeout: getenvDuration("PROVIDER_TIMEOUT", 10*time.Second),
			ForecastDays:   getenvInt("FORECAST_DAYS", 3),
		},
		Ingestion: IngestionConfig{
			Interval: getenvDuration("INGEST_INTERVAL", 0),
		},
		Logging: LoggingConfig{
			Level: getenvDefault("LOG_LEVEL", "info"),
		},
	}

	locations, err := parseLocations(os.Getenv("LOCATIONS"))
	if err != nil {
		return nil, err
	}
	cfg.Ingestion.Locations = locations

	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Providers.GeocodingURL == "" || c.Providers.ForecastURL == "" {
		return fmt.Errorf("provider URLs must not be empty")
	}
	if c.Providers.RequestTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	if c.Ingestion.Interval > 0 && len(c.Ingestion.Locations) == 0 {
		return fmt.Errorf("INGEST_INTERVAL is set but LOCATIONS is empty")
	}
	return nil
}

// parseLocations parses "52.52:13.41,48.85:2.35" into coordinates.
func parseLocations(raw string) ([]models.Coordinate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var coords []models.Coordinate
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.Split(pair, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q, expected lat:lon", pair)
		}

		coord, err := models.ParseCoordinate(parts[0], parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid LOCATIONS entry %q: %w", pair, err)
		}
		coords = append(coords, coord)
	}

	return coords, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
