package handlers

import "net/http"

// NewRouter registers every API route. geocoder may be nil when geocoding is
// not configured.
func NewRouter(repo DealReader, geocoder Geocoder, db Pinger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", HealthHandler(db))

	mux.HandleFunc("GET /api/deals", ListDealsHandler(repo))
	mux.HandleFunc("GET /api/deals/{id}", GetDealHandler(repo))
	mux.HandleFunc("GET /api/categories", CategoriesHandler(repo))
	mux.HandleFunc("GET /api/filters", FilterOptionsHandler(repo))
	mux.HandleFunc("GET /api/geocode", GeocodeHandler(geocoder))

	return mux
}
