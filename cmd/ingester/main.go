package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"weather-history/internal/config"
	"weather-history/internal/geocode"
	"weather-history/internal/models"
	"weather-history/internal/repository"
	"weather-history/internal/services"
	"weather-history/internal/weather"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

func main() {
	// Parse command-line flags
	locationsFlag := flag.String("locations", "", "Coordinates to ingest as lat:lon pairs, comma-separated (overrides LOCATIONS)")
	interactive := flag.Bool("interactive", false, "Prompt for a single coordinate instead of using configured locations")
	csvOut := flag.String("csv-out", "", "Write the stored history to this CSV file after ingestion")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("weather-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("weather_ingester")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	store := repository.NewRecordStore(db, logger, metricsCollector)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to ensure schema", logging.Fields{}, err)
	}

	// Initialize provider clients and services
	resolver := geocode.NewResolver(
		cfg.Providers.GeocodingURL,
		cfg.Providers.UserAgent,
		cfg.Providers.RequestTimeout,
		logger,
		metricsCollector,
	)
	fetcher := weather.NewClient(
		cfg.Providers.ForecastURL,
		cfg.Providers.ForecastDays,
		cfg.Providers.RequestTimeout,
		logger,
		metricsCollector,
	)
	ingestionService := services.NewIngestionService(resolver, fetcher, store, logger, metricsCollector)
	exportService := services.NewExportService(store, logger)

	// Determine which coordinates to ingest
	coords, err := resolveCoordinates(cfg, *locationsFlag, *interactive)
	if err != nil {
		var invalid *models.InvalidInputError
		if errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, "Invalid input. Please enter numeric values.")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if len(coords) > 0 {
		entries := ingestionService.Ingest(ctx, coords)
		printSummary(entries)
	}

	if *csvOut != "" {
		if err := exportToFile(ctx, exportService, *csvOut); err != nil {
			logger.Fatal(ctx, "[EXPORT_ERROR] CSV export failed", logging.Fields{
				"path": *csvOut,
			}, err)
		}
		fmt.Printf("History exported to %s\n", *csvOut)
	}
}

// resolveCoordinates picks the coordinate list from the interactive prompt,
// the -locations flag, or the configured LOCATIONS, in that precedence.
func resolveCoordinates(cfg *config.Config, locationsFlag string, interactive bool) ([]models.Coordinate, error) {
	if interactive {
		coord, err := promptCoordinate(os.Stdin)
		if err != nil {
			return nil, err
		}
		return []models.Coordinate{coord}, nil
	}

	if locationsFlag != "" {
		var coords []models.Coordinate
		for _, pair := range strings.Split(locationsFlag, ",") {
			parts := strings.Split(pair, ":")
			if len(parts) != 2 {
				return nil, fmt.Errorf("invalid -locations entry %q, expected lat:lon", pair)
			}
			coord, err := models.ParseCoordinate(parts[0], parts[1])
			if err != nil {
				return nil, err
			}
			coords = append(coords, coord)
		}
		return coords, nil
	}

	return cfg.Ingestion.Locations, nil
}

// promptCoordinate reads one coordinate from the operator. Non-numeric
// input is rejected with an InvalidInputError and no pipeline invocation.
func promptCoordinate(in *os.File) (models.Coordinate, error) {
	reader := bufio.NewReader(in)

	fmt.Print("Enter latitude: ")
	latitude, err := reader.ReadString('\n')
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to read latitude: %w", err)
	}

	fmt.Print("Enter longitude: ")
	longitude, err := reader.ReadString('\n')
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("failed to read longitude: %w", err)
	}

	return models.ParseCoordinate(latitude, longitude)
}

func printSummary(entries []models.BatchEntry) {
	succeeded := 0
	for _, entry := range entries {
		if entry.Temperature != nil {
			succeeded++
			fmt.Printf("Temperature in %s: %.1f °C\n", entry.City, *entry.Temperature)
		} else {
			fmt.Printf("Weather unavailable for %s (%.2f, %.2f)\n", entry.City, entry.Latitude, entry.Longitude)
		}
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Locations: %d, succeeded: %d, failed: %d\n", len(entries), succeeded, len(entries)-succeeded)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err == nil {
		fmt.Println(string(data))
	}
}

func exportToFile(ctx context.Context, exportService *services.ExportService, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := exportService.WriteCSV(ctx, file); err != nil {
		return err
	}

	return file.Sync()
}
