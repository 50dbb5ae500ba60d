// Package geocode resolves free-text place queries to coordinates using the
// Mapbox geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"dealsmap/models"
)

const (
	DefaultBaseURL = "https://api.mapbox.com"
	placeTypes     = "place,poi,address,locality,neighborhood"
	language       = "en"
	resultLimit    = 5
)

var ErrEmptyQuery = errors.New("geocode: empty query")

// Client calls the geocoding API. Requests are throttled by a shared limiter.
type Client struct {
	baseURL     string
	token       string
	country     string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New creates a client. perSecond <= 0 disables throttling.
func New(baseURL, token, country string, perSecond float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Client{
		baseURL:     baseURL,
		token:       token,
		country:     country,
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

type featureCollection struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
	Message string `json:"message"`
}

// Search returns up to five places matching query, biased towards proximity
// when it is non-nil. An empty result is not an error.
func (c *Client) Search(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocode rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", c.token)
	if proximity != nil {
		params.Set("proximity", fmt.Sprintf("%s,%s",
			strconv.FormatFloat(proximity.Lng, 'f', -1, 64),
			strconv.FormatFloat(proximity.Lat, 'f', -1, 64)))
	}
	if c.country != "" {
		params.Set("country", c.country)
	}
	params.Set("types", placeTypes)
	params.Set("fuzzyMatch", "true")
	params.Set("language", language)
	params.Set("limit", strconv.Itoa(resultLimit))

	apiURL := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s", c.baseURL, url.PathEscape(query), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	var result featureCollection
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode API error: status %d: %s", resp.StatusCode, result.Message)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("geocode decode: %w", decodeErr)
	}

	places := make([]models.Place, 0, len(result.Features))
	for _, f := range result.Features {
		if len(f.Center) < 2 {
			continue
		}
		places = append(places, models.Place{
			Name:       f.PlaceName,
			Coordinate: models.Coordinate{Lng: f.Center[0], Lat: f.Center[1]},
		})
	}
	return places, nil
}
