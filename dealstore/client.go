package dealstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dealsmap/models"
)

// ErrNotFound is returned by FetchByID when the API answers 404.
var ErrNotFound = errors.New("deal not found")

// Client talks to the deals API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the API at baseURL, e.g. http://localhost:3003.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchAll returns every deal from GET /api/deals.
func (c *Client) FetchAll(ctx context.Context) ([]models.Deal, error) {
	var deals []models.Deal
	if err := c.getJSON(ctx, "/api/deals", &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

// FetchByID returns one deal, or ErrNotFound.
func (c *Client) FetchByID(ctx context.Context, id int64) (*models.Deal, error) {
	var deal models.Deal
	if err := c.getJSON(ctx, "/api/deals/"+strconv.FormatInt(id, 10), &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

// Geocode resolves query through the API's geocoding proxy.
func (c *Client) Geocode(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	if proximity != nil {
		params.Set("lat", strconv.FormatFloat(proximity.Lat, 'f', -1, 64))
		params.Set("lng", strconv.FormatFloat(proximity.Lng, 'f', -1, 64))
	}
	var places []models.Place
	if err := c.getJSON(ctx, "/api/geocode?"+params.Encode(), &places); err != nil {
		return nil, err
	}
	return places, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
