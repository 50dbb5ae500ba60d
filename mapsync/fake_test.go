package mapsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"dealsmap/models"
)

// --- Fake map surface ---

type fakeMarker struct {
	m           *fakeMap
	opts        MarkerOptions
	highlighted bool
	removed     bool
}

func (f *fakeMarker) SetHighlighted(on bool) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.removed {
		f.m.touchedAfterRemove = true
	}
	f.highlighted = on
}

func (f *fakeMarker) Remove() {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.removed = true
	f.m.ops = append(f.m.ops, "remove")
}

// click simulates the SDK invoking the marker's click handler.
func (f *fakeMarker) click() {
	if f.opts.OnClick != nil {
		f.opts.OnClick()
	}
}

type flyTo struct {
	center models.Coordinate
	zoom   float64
}

type fakeMap struct {
	mu             sync.Mutex
	center         models.Coordinate
	zoom           float64
	markers        []*fakeMarker
	ops            []string
	flights        []flyTo
	onClick        func()
	removed        bool
	addAfterRemove bool
	failAdd        bool
	// touchedAfterRemove is set when a removed marker is highlighted or
	// unhighlighted.
	touchedAfterRemove bool
}

func (m *fakeMap) AddMarker(opts MarkerOptions) (Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		m.addAfterRemove = true
	}
	if m.failAdd {
		return nil, errors.New("sdk refused marker")
	}
	mk := &fakeMarker{m: m, opts: opts}
	m.markers = append(m.markers, mk)
	m.ops = append(m.ops, "add")
	return mk, nil
}

func (m *fakeMap) FlyTo(center models.Coordinate, zoom float64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flights = append(m.flights, flyTo{center, zoom})
}

func (m *fakeMap) OnClick(fn func()) {
	m.onClick = fn
}

func (m *fakeMap) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
}

// live returns markers of a kind that have not been removed.
func (m *fakeMap) live(kind MarkerKind) []*fakeMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*fakeMarker
	for _, mk := range m.markers {
		if !mk.removed && mk.opts.Kind == kind {
			out = append(out, mk)
		}
	}
	return out
}

func (m *fakeMap) dealMarker(id int64) *fakeMarker {
	for _, mk := range m.live(KindDeal) {
		if mk.opts.DealID == id {
			return mk
		}
	}
	return nil
}

func (m *fakeMap) resetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

type fakeSurface struct {
	maps []*fakeMap
	err  error
}

func (s *fakeSurface) NewMap(center models.Coordinate, zoom float64) (Map, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := &fakeMap{center: center, zoom: zoom}
	s.maps = append(s.maps, m)
	return m, nil
}

func (s *fakeSurface) current() *fakeMap {
	return s.maps[len(s.maps)-1]
}

// --- Fake collaborators ---

type fakeGeocoder struct {
	places    []models.Place
	err       error
	proximity *models.Coordinate
	started   chan struct{}
	release   chan struct{}
}

func (g *fakeGeocoder) Geocode(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error) {
	g.proximity = proximity
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}
	return g.places, g.err
}

type fakeLocator struct {
	pos     models.Coordinate
	err     error
	started chan struct{}
	release chan struct{}
}

func (l *fakeLocator) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if l.started != nil {
		close(l.started)
	}
	if l.release != nil {
		<-l.release
	}
	return l.pos, l.err
}
