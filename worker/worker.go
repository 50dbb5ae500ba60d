package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"dealsmap/models"
)

const DefaultPoolSize = 8

// Geocoder resolves a place description to candidate places.
type Geocoder interface {
	Search(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error)
}

// Result reports what happened to one deal of the batch.
type Result struct {
	Index int
	Err   error
}

// Stats summarises a geocoding batch.
type Stats struct {
	Resolved int
	Skipped  int
	Failed   int
}

// GeocodeMissing fills latitude and longitude for every deal that has none,
// looking up "<title>, <location>" with at most poolSize lookups in flight.
// Deals are updated in place. A failed lookup is logged and recorded in the
// returned results; it never stops the batch. Only context cancellation
// aborts early.
func GeocodeMissing(ctx context.Context, geocoder Geocoder, deals []models.Deal, poolSize int) (Stats, []Result, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	slog.Info("Starting geocoding batch", "deals", len(deals), "concurrency", poolSize)

	results := make([]Result, len(deals))
	var resolved, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for i := range deals {
		results[i].Index = i
		if deals[i].HasCoordinate() {
			skipped.Add(1)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d := &deals[i]
			c, err := fetchCoordinates(gctx, geocoder, d.Title, d.Location)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				slog.Warn("Geocoding failed", "title", d.Title, "location", d.Location, "error", err)
				results[i].Err = err
				failed.Add(1)
				return nil
			}
			d.Latitude = strconv.FormatFloat(c.Lat, 'f', 6, 64)
			d.Longitude = strconv.FormatFloat(c.Lng, 'f', 6, 64)
			resolved.Add(1)
			slog.Info("Resolved", "title", d.Title, "lat", d.Latitude, "lng", d.Longitude)
			return nil
		})
	}

	err := g.Wait()
	stats := Stats{Resolved: int(resolved.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	if err != nil {
		return stats, results, fmt.Errorf("geocoding batch: %w", err)
	}
	return stats, results, nil
}

func fetchCoordinates(ctx context.Context, geocoder Geocoder, name, location string) (models.Coordinate, error) {
	query := location
	if name != "" {
		query = fmt.Sprintf("%s, %s", name, location)
	}
	places, err := geocoder.Search(ctx, query, nil)
	if err != nil {
		return models.Coordinate{}, err
	}
	if len(places) == 0 {
		// Fall back to the address on its own; venue names are often unknown.
		if name != "" {
			return fetchCoordinates(ctx, geocoder, "", location)
		}
		return models.Coordinate{}, fmt.Errorf("no results found for %q", query)
	}
	return places[0].Coordinate, nil
}
