package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"dealsmap/models"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required but not set")

// Config holds the settings shared by the server, seeder and explorer.
type Config struct {
	DatabaseURL      string
	DatabaseDriver   string
	Port             string
	AllowedOrigins   []string
	MapboxToken      string
	GeocodeBaseURL   string
	GeocodeCountry   string
	GeocodeRateLimit float64
	WorkerPoolSize   int
	DealsAPIURL      string
	// ExplorerLocation is nil when EXPLORER_LOCATION is unset.
	ExplorerLocation    *models.Coordinate
	ExplorerHistoryFile string
}

// Load reads the configuration from the environment. DATABASE_URL is not
// checked here; binaries that need a database call RequireDatabase.
func Load() (*Config, error) {
	databaseDriver := os.Getenv("DATABASE_DRIVER")
	if databaseDriver == "" {
		databaseDriver = "postgres"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3003"
		slog.Info("Defaulting to port", "port", port)
	}

	allowedOrigins := []string{"http://localhost:3000"}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		allowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	mapboxToken := os.Getenv("MAPBOX_ACCESS_TOKEN")
	if mapboxToken == "" {
		slog.Warn("MAPBOX_ACCESS_TOKEN not set, geocoding will be disabled")
	}

	geocodeBaseURL := os.Getenv("GEOCODE_BASE_URL")
	if geocodeBaseURL == "" {
		geocodeBaseURL = "https://api.mapbox.com"
	}

	geocodeCountry := os.Getenv("GEOCODE_COUNTRY")
	if geocodeCountry == "" {
		geocodeCountry = "ZA"
	}

	geocodeRateLimit := 5.0
	if v := os.Getenv("GEOCODE_RATE_LIMIT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GEOCODE_RATE_LIMIT %q: %w", v, err)
		}
		geocodeRateLimit = parsed
	}

	workerPoolSize := 8
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WORKER_POOL_SIZE %q: %w", v, err)
		}
		if parsed < 1 {
			return nil, fmt.Errorf("invalid WORKER_POOL_SIZE %q: must be at least 1", v)
		}
		workerPoolSize = parsed
	}

	dealsAPIURL := os.Getenv("DEALS_API_URL")
	if dealsAPIURL == "" {
		dealsAPIURL = "http://localhost:" + port
	}

	var explorerLocation *models.Coordinate
	if v := os.Getenv("EXPLORER_LOCATION"); v != "" {
		c, err := models.ParseCoordinate(v)
		if err != nil {
			return nil, fmt.Errorf("invalid EXPLORER_LOCATION %q: %w", v, err)
		}
		explorerLocation = &c
	}

	historyFile := os.Getenv("EXPLORER_HISTORY_FILE")
	if historyFile == "" {
		historyFile = ".dealsmap_history"
	}

	return &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DatabaseDriver:      databaseDriver,
		Port:                port,
		AllowedOrigins:      allowedOrigins,
		MapboxToken:         mapboxToken,
		GeocodeBaseURL:      geocodeBaseURL,
		GeocodeCountry:      geocodeCountry,
		GeocodeRateLimit:    geocodeRateLimit,
		WorkerPoolSize:      workerPoolSize,
		DealsAPIURL:         dealsAPIURL,
		ExplorerLocation:    explorerLocation,
		ExplorerHistoryFile: historyFile,
	}, nil
}

// RequireDatabase returns ErrMissingDatabaseURL when no DSN is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// GeocodingEnabled reports whether a geocoding token is configured.
func (c *Config) GeocodingEnabled() bool {
	return c.MapboxToken != ""
}
