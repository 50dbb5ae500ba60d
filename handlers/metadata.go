package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dealsmap/filter"
	"dealsmap/models"
)

// Geocoder resolves a free-text query to places, biased towards proximity.
type Geocoder interface {
	Search(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error)
}

// Pinger reports database availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CategoriesHandler lists the category selector buttons: "All" followed by
// every distinct category in alphabetical order.
func CategoriesHandler(repo DealReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := repo.Categories(r.Context())
		if err != nil {
			slog.Error("Categories query error", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch categories")
			return
		}
		writeJSON(w, http.StatusOK, append([]string{models.AllCategories}, categories...))
	}
}

// FilterOptionsHandler returns the option lists for the four filter dropdowns.
func FilterOptionsHandler(repo DealReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := repo.Categories(r.Context())
		if err != nil {
			slog.Error("Categories query error", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch filter options")
			return
		}
		writeJSON(w, http.StatusOK, filter.FilterOptions(categories))
	}
}

// GeocodeHandler forwards a place search to the geocoding service so the
// access token never reaches the client. lng and lat, when both present, bias
// the results.
func GeocodeHandler(geocoder Geocoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoder == nil {
			writeError(w, http.StatusServiceUnavailable, "Geocoding is not configured")
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "q is required")
			return
		}

		var proximity *models.Coordinate
		latStr, lngStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lng")
		if latStr != "" && lngStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lng, errLng := strconv.ParseFloat(lngStr, 64)
			if errLat != nil || errLng != nil {
				writeError(w, http.StatusBadRequest, "lat and lng must be numbers")
				return
			}
			proximity = &models.Coordinate{Lat: lat, Lng: lng}
		}

		places, err := geocoder.Search(r.Context(), query, proximity)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Warn("Geocoding request failed", "query", query, "error", err)
			writeError(w, http.StatusBadGateway, "Geocoding failed")
			return
		}
		if places == nil {
			places = []models.Place{}
		}
		writeJSON(w, http.StatusOK, places)
	}
}

// HealthHandler reports whether the database answers within two seconds.
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
