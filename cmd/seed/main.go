package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dealsmap/config"
	"dealsmap/database"
	"dealsmap/geocode"
	"dealsmap/models"
	"dealsmap/seed"
)

// main populates the deals table from a YAML catalogue.
func main() {
	file := flag.String("file", "", "YAML catalogue to load (default: built-in Cape Town catalogue)")
	reset := flag.Bool("reset", false, "delete existing deals before inserting")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireDatabase(); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deals []models.Deal
	if *file != "" {
		deals, err = seed.LoadFile(*file)
	} else {
		deals, err = seed.Default()
	}
	if err != nil {
		slog.Error("Failed to load catalogue", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	opts := seed.Options{Reset: *reset, PoolSize: cfg.WorkerPoolSize}
	if cfg.GeocodingEnabled() {
		opts.Geocoder = geocode.New(cfg.GeocodeBaseURL, cfg.MapboxToken, cfg.GeocodeCountry, cfg.GeocodeRateLimit)
	}

	report, err := seed.Run(ctx, database.NewDealRepository(db, cfg.DatabaseDriver), deals, opts)
	if err != nil {
		slog.Error("Error populating database", "error", err)
		os.Exit(1)
	}
	slog.Info("Database populated successfully", "inserted", report.Inserted, "skipped", report.Skipped)
}
