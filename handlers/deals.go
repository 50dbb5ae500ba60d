package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"dealsmap/database"
	"dealsmap/filter"
	"dealsmap/models"
)

// DealReader is the part of the deals repository the API needs.
type DealReader interface {
	ListDeals(ctx context.Context) ([]models.Deal, error)
	GetDeal(ctx context.Context, id int64) (*models.Deal, error)
	Categories(ctx context.Context) ([]string, error)
}

// FilterParams is the category selector and dropdown filters of a listing request.
type FilterParams struct {
	Category string
	Filters  models.FilterState
}

// ParseFilterParams extracts the category selector and dropdown filters from the
// URL query. Missing values fall back to the "all" sentinels.
func ParseFilterParams(query url.Values) (FilterParams, error) {
	p := FilterParams{
		Category: query.Get("category"),
		Filters: models.FilterState{
			Price:     query.Get("price"),
			DealType:  query.Get("type"),
			DayOfWeek: query.Get("day"),
			TimeOfDay: query.Get("time"),
		}.Normalized(),
	}
	if p.Category == "" {
		p.Category = models.AllCategories
	}

	opts := filter.FilterOptions(nil)
	if !slices.Contains(opts.Price, p.Filters.Price) {
		return p, fmt.Errorf("invalid price %q", p.Filters.Price)
	}
	if !slices.Contains(opts.DayOfWeek, p.Filters.DayOfWeek) {
		return p, fmt.Errorf("invalid day %q", p.Filters.DayOfWeek)
	}
	if !slices.Contains(opts.TimeOfDay, p.Filters.TimeOfDay) {
		return p, fmt.Errorf("invalid time %q", p.Filters.TimeOfDay)
	}
	return p, nil
}

// ListDealsHandler returns every deal, optionally narrowed by the filter query
// parameters, in catalogue order.
func ListDealsHandler(repo DealReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := ParseFilterParams(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		deals, err := repo.ListDeals(r.Context())
		if err != nil {
			slog.Error("Error fetching deals", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch deals")
			return
		}

		writeJSON(w, http.StatusOK, filter.Visible(deals, p.Category, p.Filters))
	}
}

// GetDealHandler returns a single deal by its integer id.
func GetDealHandler(repo DealReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusNotFound, "Deal not found")
			return
		}

		deal, err := repo.GetDeal(r.Context(), id)
		if errors.Is(err, database.ErrDealNotFound) {
			writeError(w, http.StatusNotFound, "Deal not found")
			return
		}
		if err != nil {
			slog.Error("Error fetching deal", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch deal")
			return
		}

		writeJSON(w, http.StatusOK, deal)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
