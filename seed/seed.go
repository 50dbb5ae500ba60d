// Package seed loads the YAML deals catalogue and writes it to the database.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"dealsmap/models"
	"dealsmap/validator"
	"dealsmap/worker"
)

//go:embed deals.yaml
var defaultCatalogue []byte

type defaults struct {
	IsRecurring    bool                   `yaml:"isRecurring"`
	IsActive       bool                   `yaml:"isActive"`
	OperatingHours *models.OperatingHours `yaml:"operatingHours"`
}

type catalogue struct {
	Defaults defaults    `yaml:"defaults"`
	Deals    []yaml.Node `yaml:"deals"`
}

// Load decodes a catalogue. Each entry starts from the defaults block and the
// keys it sets override them.
func Load(r io.Reader) ([]models.Deal, error) {
	var c catalogue
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if err == io.EOF {
			return []models.Deal{}, nil
		}
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	deals := make([]models.Deal, 0, len(c.Deals))
	for i := range c.Deals {
		d := models.Deal{
			IsRecurring: c.Defaults.IsRecurring,
			IsActive:    c.Defaults.IsActive,
		}
		if c.Defaults.OperatingHours != nil {
			hours := *c.Defaults.OperatingHours
			d.OperatingHours = &hours
		}
		if err := c.Deals[i].Decode(&d); err != nil {
			return nil, fmt.Errorf("decode deal %d (line %d): %w", i, c.Deals[i].Line, err)
		}
		deals = append(deals, d)
	}
	return deals, nil
}

// LoadFile decodes the catalogue at path.
func LoadFile(path string) ([]models.Deal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded Cape Town catalogue.
func Default() ([]models.Deal, error) {
	return Load(bytes.NewReader(defaultCatalogue))
}

// Store is where seeded deals are written.
type Store interface {
	InsertDeal(ctx context.Context, d models.Deal) (int64, error)
	Truncate(ctx context.Context) error
}

// Options controls a seeding run.
type Options struct {
	// Reset empties the table before inserting.
	Reset bool
	// Geocoder fills coordinates for entries that have none. When nil those
	// entries are skipped.
	Geocoder worker.Geocoder
	PoolSize int
}

// Report counts the outcome of a seeding run.
type Report struct {
	Inserted int
	Geocoded int
	Skipped  int
}

// Run geocodes, validates and inserts deals. Entries that cannot be geocoded,
// fail validation or fail to insert are logged and skipped.
func Run(ctx context.Context, store Store, deals []models.Deal, opts Options) (Report, error) {
	var report Report

	if opts.Reset {
		if err := store.Truncate(ctx); err != nil {
			return report, err
		}
		slog.Info("Cleared existing deals")
	}

	if opts.Geocoder != nil {
		stats, _, err := worker.GeocodeMissing(ctx, opts.Geocoder, deals, opts.PoolSize)
		if err != nil {
			return report, err
		}
		report.Geocoded = stats.Resolved
	}

	v := validator.New()
	for _, d := range deals {
		if !d.HasCoordinate() {
			slog.Warn("Skipping deal without coordinates", "title", d.Title, "location", d.Location)
			report.Skipped++
			continue
		}
		if err := v.ValidateDeal(d); err != nil {
			slog.Warn("Skipping invalid deal", "title", d.Title, "error", err)
			report.Skipped++
			continue
		}
		id, err := store.InsertDeal(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			slog.Error("Failed to insert deal", "title", d.Title, "error", err)
			report.Skipped++
			continue
		}
		slog.Debug("Inserted deal", "id", id, "title", d.Title)
		report.Inserted++
	}

	slog.Info("Seeding finished", "inserted", report.Inserted, "geocoded", report.Geocoded, "skipped", report.Skipped)
	return report, nil
}
