package mapsync

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"

	"dealsmap/models"
)

func strPtr(s string) *string { return &s }

func testDeals() []models.Deal {
	return []models.Deal{
		{ID: 1, Title: "50% Off Pizza", Category: strPtr("Food"), Latitude: "-33.9188", Longitude: "18.4233", Day: models.EveryDay},
		{ID: 2, Title: "Buy 1 Get 1 Coffee", Category: strPtr("Food"), Latitude: "-33.9258", Longitude: "18.4241", Day: models.Monday, Price: strPtr("40")},
		{ID: 3, Title: "20% Off Gym Membership", Category: strPtr("Fitness"), Latitude: "-33.9166", Longitude: "18.4296", Day: models.Tuesday, Price: strPtr("300")},
		{ID: 4, Title: "50% Off Sneakers", Category: strPtr("Shopping"), Latitude: "-33.9249", Longitude: "18.4265", Day: models.Friday, Price: strPtr("80")},
		{ID: 5, Title: "Broken coordinates", Category: strPtr("Food"), Latitude: "not-a-number", Longitude: "18.4", Day: models.EveryDay},
		{ID: 6, Title: "NaN coordinates", Category: strPtr("Food"), Latitude: "NaN", Longitude: "18.4", Day: models.EveryDay},
	}
}

type harness struct {
	sync     *Synchronizer
	surface  *fakeSurface
	geocoder *fakeGeocoder
	locator  *fakeLocator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		surface:  &fakeSurface{},
		geocoder: &fakeGeocoder{},
		locator:  &fakeLocator{},
	}
	h.sync = New(h.surface, h.geocoder, h.locator, DefaultOptions())
	return h
}

func (h *harness) ready(t *testing.T) *fakeMap {
	t.Helper()
	h.sync.SetDeals(testDeals())
	if err := h.sync.Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	return h.surface.current()
}

func liveDealIDs(m *fakeMap) []int64 {
	var ids []int64
	for _, mk := range m.live(KindDeal) {
		ids = append(ids, mk.opts.DealID)
	}
	slices.Sort(ids)
	return ids
}

func TestInit_CreatesOneMapAtDefaultCamera(t *testing.T) {
	h := newHarness(t)
	if h.sync.State() != Uninitialized {
		t.Fatalf("expected uninitialized, got %s", h.sync.State())
	}
	m := h.ready(t)

	if h.sync.State() != Ready {
		t.Errorf("expected ready, got %s", h.sync.State())
	}
	opts := DefaultOptions()
	if m.center != opts.Center || m.zoom != opts.Zoom {
		t.Errorf("map created at %v/%v, want %v/%v", m.center, m.zoom, opts.Center, opts.Zoom)
	}
	if err := h.sync.Init(); err != nil {
		t.Fatalf("second Init() returned error: %v", err)
	}
	if len(h.surface.maps) != 1 {
		t.Errorf("expected a single map instance, got %d", len(h.surface.maps))
	}
}

func TestInit_SurfaceFailure(t *testing.T) {
	h := newHarness(t)
	h.surface.err = errors.New("no rendering surface")
	if err := h.sync.Init(); err == nil {
		t.Fatal("expected Init() to fail")
	}
	if h.sync.State() != Uninitialized {
		t.Errorf("failed Init must leave state uninitialized, got %s", h.sync.State())
	}
}

func TestReconcile_RegistryMatchesVisibleSet(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	want := []int64{1, 2, 3, 4}
	if got := h.sync.MarkerIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("MarkerIDs() = %v, want %v", got, want)
	}
	if got := liveDealIDs(m); !reflect.DeepEqual(got, want) {
		t.Errorf("live markers = %v, want %v", got, want)
	}
	if len(h.sync.Visible()) != 6 {
		t.Errorf("deals with broken coordinates must stay visible, got %d visible", len(h.sync.Visible()))
	}

	pizza := m.dealMarker(1)
	h.sync.SetCategory("Food")
	if got := h.sync.MarkerIDs(); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("MarkerIDs() after Food = %v", got)
	}
	if got := liveDealIDs(m); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("live markers after Food = %v", got)
	}
	if m.dealMarker(1) != pizza {
		t.Error("marker for a deal that stayed visible was recreated")
	}

	h.sync.SetCategory(models.AllCategories)
	if got := liveDealIDs(m); !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Errorf("live markers after All = %v", got)
	}
	if m.dealMarker(1) != pizza {
		t.Error("marker identity lost after widening the filter")
	}
}

func TestReconcile_SkipsNonNumericCoordinates(t *testing.T) {
	h := newHarness(t)
	h.sync.SetDeals([]models.Deal{
		{ID: 9, Title: "NaN latitude", Latitude: "NaN", Longitude: "18.4", Day: models.EveryDay},
		{ID: 10, Title: "NaN longitude", Latitude: "-33.9", Longitude: "nan", Day: models.EveryDay},
		{ID: 11, Title: "Infinite latitude", Latitude: "Inf", Longitude: "18.4", Day: models.EveryDay},
		{ID: 12, Title: "Valid", Latitude: "-33.9", Longitude: "18.4", Day: models.EveryDay},
	})
	if err := h.sync.Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	if got := h.sync.MarkerIDs(); !reflect.DeepEqual(got, []int64{12}) {
		t.Errorf("MarkerIDs() = %v, want [12]", got)
	}
	if got := liveDealIDs(h.surface.current()); !reflect.DeepEqual(got, []int64{12}) {
		t.Errorf("live markers = %v, want [12]", got)
	}
	if len(h.sync.Visible()) != 4 {
		t.Errorf("all deals should stay visible, got %d", len(h.sync.Visible()))
	}
}

func TestReconcile_MovedDealGetsNewMarker(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	_ = h.sync.SelectDeal(1)
	old := m.dealMarker(1)
	coffee := m.dealMarker(2)

	moved := testDeals()
	moved[0].Latitude, moved[0].Longitude = "-33.9065", "18.4205"
	h.sync.SetDeals(moved)

	want := models.Coordinate{Lat: -33.9065, Lng: 18.4205}
	current := m.dealMarker(1)
	if current == nil || current == old {
		t.Fatal("expected a new marker for the moved deal")
	}
	if current.opts.Position != want {
		t.Errorf("marker at %v, want %v", current.opts.Position, want)
	}
	if !old.removed {
		t.Error("marker at the old position should be removed")
	}
	if m.dealMarker(2) != coffee {
		t.Error("unmoved deal should keep its marker")
	}
	if m.touchedAfterRemove {
		t.Error("removed marker was highlighted or unhighlighted")
	}

	sel, ok := h.sync.Selected()
	if !ok || sel.ID != 1 {
		t.Errorf("selection should survive the move, got %v, %v", sel.ID, ok)
	}
	if got := highlighted(m); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("highlighted = %v, want [1]", got)
	}

	_ = h.sync.SelectDeal(2)
	_ = h.sync.SelectDeal(1)
	if cam := h.sync.Camera(); cam.Center != want {
		t.Errorf("camera flew to %v, want %v", cam.Center, want)
	}
	if got := highlighted(m); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("highlighted = %v, want [1]", got)
	}
}

func TestReconcile_RemovesBeforeAdding(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.sync.SetCategory("Food")
	m.resetOps()
	h.sync.SetCategory("Shopping")

	if !reflect.DeepEqual(m.ops, []string{"remove", "remove", "add"}) {
		t.Errorf("unexpected operation order %v", m.ops)
	}
}

func TestReconcile_FiltersBeforeInitRenderOnInit(t *testing.T) {
	h := newHarness(t)
	h.sync.SetDeals(testDeals())
	h.sync.SetFilters(models.FilterState{Price: "Under R50"})

	if err := h.sync.Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if got := liveDealIDs(h.surface.current()); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("live markers = %v, want [1 2]", got)
	}
}

func TestReconcile_AddFailureKeepsRegistryConsistent(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)
	h.sync.SetCategory("Fitness")

	m.failAdd = true
	h.sync.SetCategory("Shopping")
	if got := h.sync.MarkerIDs(); len(got) != 0 {
		t.Errorf("registry must not hold markers that failed to create, got %v", got)
	}
	m.failAdd = false
	h.sync.SetDeals(testDeals())
	if got := h.sync.MarkerIDs(); !reflect.DeepEqual(got, []int64{4}) {
		t.Errorf("MarkerIDs() after retry = %v, want [4]", got)
	}
}

func TestReconcile_ConvergesOverRandomTransitions(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)
	rng := rand.New(rand.NewPCG(1, 2))

	categories := []string{models.AllCategories, "Food", "Fitness", "Shopping", "Nope"}
	prices := []string{models.AnyPrice, "Under R50", "R50 - R100", "Over R200"}
	days := []string{models.AnyDay, "Monday", "Tuesday", "Friday", "Sunday"}

	identity := map[int64]*fakeMarker{}
	for _, id := range liveDealIDs(m) {
		identity[id] = m.dealMarker(id)
	}

	for i := 0; i < 200; i++ {
		before := map[int64]bool{}
		for _, id := range h.sync.MarkerIDs() {
			before[id] = true
		}

		switch rng.IntN(3) {
		case 0:
			h.sync.SetCategory(categories[rng.IntN(len(categories))])
		case 1:
			h.sync.SetFilters(models.FilterState{Price: prices[rng.IntN(len(prices))], DayOfWeek: days[rng.IntN(len(days))]})
		case 2:
			deals := testDeals()
			rng.Shuffle(len(deals), func(a, b int) { deals[a], deals[b] = deals[b], deals[a] })
			h.sync.SetDeals(deals[:rng.IntN(len(deals)+1)])
		}

		var want []int64
		for _, d := range h.sync.Visible() {
			if _, err := d.Coordinate(); err == nil {
				want = append(want, d.ID)
			}
		}
		slices.Sort(want)
		got := h.sync.MarkerIDs()
		if len(want) == 0 {
			want = []int64{}
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("step %d: registry %v != visible %v", i, got, want)
		}
		if live := liveDealIDs(m); !reflect.DeepEqual(live, got) && !(len(live) == 0 && len(got) == 0) {
			t.Fatalf("step %d: live markers %v != registry %v", i, live, got)
		}
		for _, id := range got {
			mk := m.dealMarker(id)
			if before[id] && identity[id] != mk {
				t.Fatalf("step %d: marker for deal %d recreated", i, id)
			}
			identity[id] = mk
		}
	}
}

func highlighted(m *fakeMap) []int64 {
	var ids []int64
	for _, mk := range m.live(KindDeal) {
		if mk.highlighted {
			ids = append(ids, mk.opts.DealID)
		}
	}
	return ids
}

func TestSelect_OnlyOneHighlight(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	m.dealMarker(1).click()
	if got := highlighted(m); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("highlighted = %v, want [1]", got)
	}
	m.dealMarker(3).click()
	if got := highlighted(m); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("highlighted = %v, want [3]", got)
	}

	sel, ok := h.sync.Selected()
	if !ok || sel.ID != 3 {
		t.Errorf("Selected() = %v, %v; want deal 3", sel.ID, ok)
	}
	cam := h.sync.Camera()
	if cam.Center != (models.Coordinate{Lat: -33.9166, Lng: 18.4296}) || cam.Zoom != DefaultOptions().SelectZoom {
		t.Errorf("camera = %+v, want deal 3 at select zoom", cam)
	}
}

func TestSelect_BackgroundClickClears(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	if err := h.sync.SelectDeal(2); err != nil {
		t.Fatalf("SelectDeal() returned error: %v", err)
	}
	m.onClick()
	if _, ok := h.sync.Selected(); ok {
		t.Error("selection should be cleared by a background click")
	}
	if got := highlighted(m); len(got) != 0 {
		t.Errorf("expected no highlight, got %v", got)
	}
}

func TestSelect_ClearedWhenDealFiltersOut(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	_ = h.sync.SelectDeal(3)
	h.sync.SetCategory("Food")
	if _, ok := h.sync.Selected(); ok {
		t.Error("selection must be cleared when its deal leaves the visible set")
	}
	_ = h.sync.SelectDeal(1)
	if got := highlighted(m); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("highlighted = %v, want [1]", got)
	}
}

func TestSelect_Errors(t *testing.T) {
	h := newHarness(t)
	if err := h.sync.SelectDeal(1); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	h.ready(t)
	for _, id := range []int64{5, 6} {
		if err := h.sync.SelectDeal(id); !errors.Is(err, ErrNotVisible) {
			t.Errorf("deal %d: expected ErrNotVisible for deal without marker, got %v", id, err)
		}
	}
}

func TestSearch_PlacesSingleMarker(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.geocoder.places = []models.Place{{Name: "Sea Point", Coordinate: models.Coordinate{Lat: -33.918, Lng: 18.386}}}
	if _, err := h.sync.Search(context.Background(), "sea point"); err != nil {
		t.Fatalf("Search() returned error: %v", err)
	}
	h.geocoder.places = []models.Place{
		{Name: "Camps Bay", Coordinate: models.Coordinate{Lat: -33.950, Lng: 18.378}},
		{Name: "Camps Bay Drive", Coordinate: models.Coordinate{Lat: -33.96, Lng: 18.37}},
	}
	place, err := h.sync.Search(context.Background(), "camps bay")
	if err != nil {
		t.Fatalf("Search() returned error: %v", err)
	}
	if place.Name != "Camps Bay" {
		t.Errorf("expected first result, got %q", place.Name)
	}

	search := m.live(KindSearch)
	if len(search) != 1 || search[0].opts.Label != "Camps Bay" {
		t.Errorf("expected one search marker at Camps Bay, got %d", len(search))
	}
	cam := h.sync.Camera()
	if cam.Center != place.Coordinate || cam.Zoom != DefaultOptions().SearchZoom {
		t.Errorf("camera = %+v", cam)
	}
	if got := liveDealIDs(m); !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Errorf("search must not touch deal markers, got %v", got)
	}
}

func TestSearch_FailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		places  []models.Place
		err     error
		wantErr error
	}{
		{name: "zero results", wantErr: ErrNoResults},
		{name: "network error", err: errors.New("dial tcp: connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			m := h.ready(t)

			h.geocoder.places = []models.Place{{Name: "Sea Point", Coordinate: models.Coordinate{Lat: -33.918, Lng: 18.386}}}
			_, _ = h.sync.Search(context.Background(), "sea point")
			before := h.sync.Camera()
			marker := m.live(KindSearch)[0]

			h.geocoder.places, h.geocoder.err = tt.places, tt.err
			_, err := h.sync.Search(context.Background(), "atlantis")
			if err == nil {
				t.Fatal("expected Search() to fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if h.sync.Camera() != before {
				t.Errorf("camera moved from %+v to %+v", before, h.sync.Camera())
			}
			if search := m.live(KindSearch); len(search) != 1 || search[0] != marker {
				t.Error("previous search marker must survive a failed search")
			}
		})
	}
}

func TestSearch_EmptyQueryAndNotReady(t *testing.T) {
	h := newHarness(t)
	if _, err := h.sync.Search(context.Background(), "cape town"); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	h.ready(t)
	if _, err := h.sync.Search(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearch_DisposedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.geocoder.places = []models.Place{{Name: "Sea Point", Coordinate: models.Coordinate{Lat: -33.918, Lng: 18.386}}}
	h.geocoder.started = make(chan struct{})
	h.geocoder.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.sync.Search(context.Background(), "sea point")
		done <- err
	}()

	<-h.geocoder.started
	h.sync.Dispose()
	close(h.geocoder.release)

	if err := <-done; !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if m.addAfterRemove {
		t.Error("a marker was created on a disposed map")
	}
	if len(m.live(KindSearch)) != 0 {
		t.Error("no search marker should exist on the disposed map")
	}
}

func TestLocate_PlacesUserMarkerAndBiasesSearch(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.locator.pos = models.Coordinate{Lat: -33.87, Lng: 18.63}
	if _, err := h.sync.Locate(context.Background()); err != nil {
		t.Fatalf("Locate() returned error: %v", err)
	}
	h.locator.pos = models.Coordinate{Lat: -33.90, Lng: 18.42}
	if _, err := h.sync.Locate(context.Background()); err != nil {
		t.Fatalf("Locate() returned error: %v", err)
	}

	users := m.live(KindUser)
	if len(users) != 1 || users[0].opts.Position != h.locator.pos {
		t.Errorf("expected one user marker at latest position, got %d", len(users))
	}
	if loc, ok := h.sync.UserLocation(); !ok || loc != h.locator.pos {
		t.Errorf("UserLocation() = %v, %v", loc, ok)
	}
	if cam := h.sync.Camera(); cam.Center != h.locator.pos || cam.Zoom != DefaultOptions().LocateZoom {
		t.Errorf("camera = %+v", cam)
	}

	h.geocoder.places = []models.Place{{Name: "Bree Street", Coordinate: models.Coordinate{Lat: -33.92, Lng: 18.418}}}
	_, _ = h.sync.Search(context.Background(), "bree street")
	if h.geocoder.proximity == nil || *h.geocoder.proximity != h.locator.pos {
		t.Errorf("search should be biased to user location, got %v", h.geocoder.proximity)
	}
}

func TestLocate_DeniedLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.locator.err = errors.New("User denied Geolocation")
	before := h.sync.Camera()
	_, err := h.sync.Locate(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Errorf("expected ErrLocationUnavailable, got %v", err)
	}
	if h.sync.Camera() != before {
		t.Error("camera moved after denied location")
	}
	if len(m.live(KindUser)) != 0 {
		t.Error("no user marker expected after denial")
	}
	if _, ok := h.sync.UserLocation(); ok {
		t.Error("user location must not be stored after denial")
	}
}

func TestLocate_DisposedWhileInFlight(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.locator.pos = models.Coordinate{Lat: -33.87, Lng: 18.63}
	h.locator.started = make(chan struct{})
	h.locator.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.sync.Locate(context.Background())
		done <- err
	}()
	<-h.locator.started
	h.sync.Dispose()
	close(h.locator.release)

	if err := <-done; !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	if m.addAfterRemove {
		t.Error("a marker was created on a disposed map")
	}
}

func TestDispose_ReleasesEverything(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t)

	h.geocoder.places = []models.Place{{Name: "Sea Point", Coordinate: models.Coordinate{Lat: -33.918, Lng: 18.386}}}
	_, _ = h.sync.Search(context.Background(), "sea point")
	h.locator.pos = models.Coordinate{Lat: -33.87, Lng: 18.63}
	_, _ = h.sync.Locate(context.Background())
	_ = h.sync.SelectDeal(1)

	h.sync.Dispose()

	if h.sync.State() != Disposed {
		t.Errorf("expected disposed, got %s", h.sync.State())
	}
	if !m.removed {
		t.Error("map instance was not released")
	}
	for _, kind := range []MarkerKind{KindDeal, KindSearch, KindUser} {
		if n := len(m.live(kind)); n != 0 {
			t.Errorf("%d %s markers outlived the map", n, kind)
		}
	}
	if len(h.sync.MarkerIDs()) != 0 {
		t.Error("registry should be empty after dispose")
	}
	if _, ok := h.sync.Selected(); ok {
		t.Error("selection should be cleared by dispose")
	}
	if m.touchedAfterRemove {
		t.Error("selection was cleared on a marker that had already been removed")
	}
	if err := h.sync.SelectDeal(1); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady after dispose, got %v", err)
	}
	h.sync.Dispose()
}

func TestDispose_ThenInitRestoresMarkers(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.locator.pos = models.Coordinate{Lat: -33.87, Lng: 18.63}
	_, _ = h.sync.Locate(context.Background())
	h.sync.SetCategory("Food")

	h.sync.Dispose()
	h.sync.SetCategory("Shopping")
	if err := h.sync.Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	m := h.surface.current()
	if len(h.surface.maps) != 2 {
		t.Fatalf("expected a new map instance, got %d", len(h.surface.maps))
	}
	if got := liveDealIDs(m); !reflect.DeepEqual(got, []int64{4}) {
		t.Errorf("live markers = %v, want [4]", got)
	}
	if len(m.live(KindUser)) != 1 {
		t.Error("user marker should be restored on the new map")
	}
	if cam := h.sync.Camera(); cam.Center != DefaultOptions().Center {
		t.Errorf("camera should reset to default, got %+v", cam)
	}
}
