// Package mapsync keeps the markers on a map in step with the visible deals,
// the selected deal and the camera.
package mapsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"dealsmap/filter"
	"dealsmap/models"
)

var (
	ErrNotReady            = errors.New("map is not ready")
	ErrDisposed            = errors.New("map was disposed while the request was in flight")
	ErrNoResults           = errors.New("no results")
	ErrEmptyQuery          = errors.New("empty search query")
	ErrNotVisible          = errors.New("deal has no marker on the map")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// State is the lifecycle of the map instance.
type State int

const (
	Uninitialized State = iota
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	default:
		return "uninitialized"
	}
}

// Options sets the camera defaults.
type Options struct {
	Center      models.Coordinate
	Zoom        float64
	SelectZoom  float64
	SearchZoom  float64
	LocateZoom  float64
	FlyDuration time.Duration
}

// DefaultOptions centres the map on Cape Town.
func DefaultOptions() Options {
	return Options{
		Center:      models.Coordinate{Lat: -33.9249, Lng: 18.4241},
		Zoom:        12,
		SelectZoom:  15,
		SearchZoom:  14,
		LocateZoom:  14,
		FlyDuration: 1500 * time.Millisecond,
	}
}

// Camera is the last position the synchronizer moved the map to.
type Camera struct {
	Center models.Coordinate
	Zoom   float64
}

// Synchronizer exclusively owns the map instance and the marker registry.
// All mutations happen under mu so a reconciliation pass is never observed
// half done.
type Synchronizer struct {
	surface  Surface
	geocoder Geocoder
	locator  Locator
	opts     Options

	mu         sync.Mutex
	state      State
	generation uint64
	m          Map
	camera     Camera

	deals    []models.Deal
	category string
	filters  models.FilterState
	visible  []models.Deal

	markers map[int64]Marker
	coords  map[int64]models.Coordinate

	selectedID  int64
	hasSelected bool
	highlighted Marker

	searchMarker Marker
	userMarker   Marker
	userLocation *models.Coordinate
}

// New returns an uninitialized synchronizer. No map exists until Init.
func New(surface Surface, geocoder Geocoder, locator Locator, opts Options) *Synchronizer {
	return &Synchronizer{
		surface:  surface,
		geocoder: geocoder,
		locator:  locator,
		opts:     opts,
		category: models.AllCategories,
		filters:  models.DefaultFilters(),
		markers:  make(map[int64]Marker),
		coords:   make(map[int64]models.Coordinate),
		camera:   Camera{Center: opts.Center, Zoom: opts.Zoom},
	}
}

// Init creates the map instance and renders markers for the current visible
// set. Calling Init on a ready synchronizer is a no-op.
func (s *Synchronizer) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Ready {
		return nil
	}
	m, err := s.surface.NewMap(s.opts.Center, s.opts.Zoom)
	if err != nil {
		return fmt.Errorf("create map: %w", err)
	}

	s.m = m
	s.state = Ready
	s.generation++
	s.camera = Camera{Center: s.opts.Center, Zoom: s.opts.Zoom}
	m.OnClick(func() { s.ClearSelection() })

	s.reconcileLocked()
	if s.userLocation != nil {
		_ = s.placeUserMarkerLocked(*s.userLocation)
	}
	return nil
}

// Dispose releases every marker and the map instance. Results of requests
// still in flight are discarded when they complete.
func (s *Synchronizer) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return
	}
	s.clearSelectionLocked()
	for id, mk := range s.markers {
		mk.Remove()
		delete(s.markers, id)
		delete(s.coords, id)
	}
	if s.searchMarker != nil {
		s.searchMarker.Remove()
		s.searchMarker = nil
	}
	if s.userMarker != nil {
		s.userMarker.Remove()
		s.userMarker = nil
	}
	s.m.Remove()
	s.m = nil
	s.state = Disposed
	s.generation++
}

// SetDeals replaces the raw deal list and recomputes the visible set.
func (s *Synchronizer) SetDeals(deals []models.Deal) []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals = deals
	return s.recomputeLocked()
}

// SetCategory changes the category selector.
func (s *Synchronizer) SetCategory(category string) []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category == "" {
		category = models.AllCategories
	}
	s.category = category
	return s.recomputeLocked()
}

// SetFilters replaces the dropdown filters.
func (s *Synchronizer) SetFilters(filters models.FilterState) []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters.Normalized()
	return s.recomputeLocked()
}

func (s *Synchronizer) recomputeLocked() []models.Deal {
	s.visible = filter.Visible(s.deals, s.category, s.filters)
	if s.state == Ready {
		s.reconcileLocked()
	}
	return slices.Clone(s.visible)
}

// reconcileLocked diffs the visible set against the registry: stale markers
// are removed first, then missing ones are added. Markers that stay visible
// at the same position are left alone; a marker whose deal moved is replaced
// and keeps the selection.
func (s *Synchronizer) reconcileLocked() {
	want := make(map[int64]models.Coordinate, len(s.visible))
	for _, d := range s.visible {
		c, err := d.Coordinate()
		if err != nil {
			slog.Warn("Skipping marker for deal with invalid coordinates", "id", d.ID, "error", err)
			continue
		}
		want[d.ID] = c
	}

	reselect := false
	for id, mk := range s.markers {
		c, ok := want[id]
		if ok && s.coords[id] == c {
			continue
		}
		if s.hasSelected && s.selectedID == id {
			if ok {
				reselect = true
				s.highlighted = nil
			} else {
				s.clearSelectionLocked()
			}
		}
		mk.Remove()
		delete(s.markers, id)
		delete(s.coords, id)
	}

	for _, d := range s.visible {
		c, ok := want[d.ID]
		if !ok {
			continue
		}
		if _, exists := s.markers[d.ID]; exists {
			continue
		}
		id := d.ID
		mk, err := s.m.AddMarker(MarkerOptions{
			Position: c,
			Kind:     KindDeal,
			DealID:   id,
			Label:    d.Title,
			OnClick:  func() { _ = s.SelectDeal(id) },
		})
		if err != nil {
			slog.Warn("Failed to create marker", "id", id, "error", err)
			continue
		}
		s.markers[id] = mk
		s.coords[id] = c
	}

	if reselect {
		mk, ok := s.markers[s.selectedID]
		if !ok {
			s.clearSelectionLocked()
			return
		}
		mk.SetHighlighted(true)
		s.highlighted = mk
	}
}

// SelectDeal highlights the deal's marker and moves the camera to it. The
// previous highlight is cleared first.
func (s *Synchronizer) SelectDeal(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Ready {
		return ErrNotReady
	}
	mk, ok := s.markers[id]
	if !ok {
		return fmt.Errorf("deal %d: %w", id, ErrNotVisible)
	}
	if s.highlighted != nil && s.highlighted != mk {
		s.highlighted.SetHighlighted(false)
	}
	mk.SetHighlighted(true)
	s.highlighted = mk
	s.selectedID = id
	s.hasSelected = true
	s.flyToLocked(s.coords[id], s.opts.SelectZoom)
	return nil
}

// ClearSelection drops the selection, e.g. after a click on empty map area.
func (s *Synchronizer) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

func (s *Synchronizer) clearSelectionLocked() {
	if s.highlighted != nil {
		s.highlighted.SetHighlighted(false)
		s.highlighted = nil
	}
	s.selectedID = 0
	s.hasSelected = false
}

// Search geocodes query and drops a single search marker on the best match.
// On any failure the map, markers and camera are left as they were.
func (s *Synchronizer) Search(ctx context.Context, query string) (models.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Place{}, ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		return models.Place{}, ErrNotReady
	}
	gen := s.generation
	var proximity *models.Coordinate
	if s.userLocation != nil {
		c := *s.userLocation
		proximity = &c
	}
	s.mu.Unlock()

	places, err := s.geocoder.Geocode(ctx, query, proximity)
	if err != nil {
		slog.Warn("Search failed", "query", query, "error", err)
		return models.Place{}, fmt.Errorf("search %q: %w", query, err)
	}
	if len(places) == 0 {
		slog.Warn("Search returned no results", "query", query)
		return models.Place{}, fmt.Errorf("search %q: %w", query, ErrNoResults)
	}
	place := places[0]

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready || s.generation != gen {
		return models.Place{}, ErrDisposed
	}
	mk, err := s.m.AddMarker(MarkerOptions{Position: place.Coordinate, Kind: KindSearch, Label: place.Name})
	if err != nil {
		slog.Warn("Failed to create search marker", "query", query, "error", err)
		return models.Place{}, fmt.Errorf("search marker: %w", err)
	}
	if s.searchMarker != nil {
		s.searchMarker.Remove()
	}
	s.searchMarker = mk
	s.flyToLocked(place.Coordinate, s.opts.SearchZoom)
	return place, nil
}

// Locate asks the locator for the device position, remembers it, and moves
// the single user-location marker and the camera there.
func (s *Synchronizer) Locate(ctx context.Context) (models.Coordinate, error) {
	s.mu.Lock()
	if s.state != Ready {
		s.mu.Unlock()
		return models.Coordinate{}, ErrNotReady
	}
	gen := s.generation
	s.mu.Unlock()

	pos, err := s.locator.CurrentPosition(ctx)
	if err != nil {
		slog.Warn("Error getting location", "error", err)
		return models.Coordinate{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready || s.generation != gen {
		return models.Coordinate{}, ErrDisposed
	}
	if err := s.placeUserMarkerLocked(pos); err != nil {
		return models.Coordinate{}, err
	}
	s.userLocation = &pos
	s.flyToLocked(pos, s.opts.LocateZoom)
	return pos, nil
}

func (s *Synchronizer) placeUserMarkerLocked(pos models.Coordinate) error {
	mk, err := s.m.AddMarker(MarkerOptions{Position: pos, Kind: KindUser, Label: "You are here"})
	if err != nil {
		slog.Warn("Failed to create user location marker", "error", err)
		return fmt.Errorf("user marker: %w", err)
	}
	if s.userMarker != nil {
		s.userMarker.Remove()
	}
	s.userMarker = mk
	return nil
}

func (s *Synchronizer) flyToLocked(c models.Coordinate, zoom float64) {
	s.m.FlyTo(c, zoom, s.opts.FlyDuration)
	s.camera = Camera{Center: c, Zoom: zoom}
}

// State returns the lifecycle state of the map instance.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Visible returns the current visible set in catalogue order.
func (s *Synchronizer) Visible() []models.Deal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.visible)
}

// MarkerIDs returns the deal ids in the registry, ascending.
func (s *Synchronizer) MarkerIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Selected returns the selected deal, if any.
func (s *Synchronizer) Selected() (models.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSelected {
		return models.Deal{}, false
	}
	for _, d := range s.visible {
		if d.ID == s.selectedID {
			return d, true
		}
	}
	return models.Deal{}, false
}

// Camera returns where the map was last moved to.
func (s *Synchronizer) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// UserLocation returns the last position obtained by Locate, if any.
func (s *Synchronizer) UserLocation() (models.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userLocation == nil {
		return models.Coordinate{}, false
	}
	return *s.userLocation, true
}

// Criteria returns the current category and filters.
func (s *Synchronizer) Criteria() (string, models.FilterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category, s.filters
}
