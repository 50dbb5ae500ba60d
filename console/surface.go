// Package console renders the deals map as text and drives it from an
// interactive prompt.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"dealsmap/mapsync"
	"dealsmap/models"
)

// Surface is a mapsync.Surface that writes every map operation as a line of
// text. It keeps a single live map at a time.
type Surface struct {
	w io.Writer

	mu      sync.Mutex
	current *textMap
}

// NewSurface creates a surface that writes to w.
func NewSurface(w io.Writer) *Surface {
	return &Surface{w: w}
}

// NewMap mounts a map. Only one map can be mounted at a time.
func (s *Surface) NewMap(center models.Coordinate, zoom float64) (mapsync.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.removed {
		return nil, errors.New("a map is already mounted on this surface")
	}
	m := &textMap{surface: s, markers: make(map[*textMarker]struct{})}
	s.current = m
	s.printf("map mounted at %s zoom %g\n", center, zoom)
	return m, nil
}

// ClickMarker simulates a click on the marker of a deal. It reports false
// when the deal has no marker on the mounted map.
func (s *Surface) ClickMarker(dealID int64) bool {
	s.mu.Lock()
	var target *textMarker
	if s.current != nil && !s.current.removed {
		for mk := range s.current.markers {
			if mk.opts.Kind == mapsync.KindDeal && mk.opts.DealID == dealID {
				target = mk
				break
			}
		}
	}
	s.mu.Unlock()

	if target == nil || target.opts.OnClick == nil {
		return false
	}
	target.opts.OnClick()
	return true
}

// ClickBackground simulates a click on empty map area.
func (s *Surface) ClickBackground() bool {
	s.mu.Lock()
	var fn func()
	if s.current != nil && !s.current.removed {
		fn = s.current.onClick
	}
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// MarkerCount returns the number of live markers of a kind.
func (s *Surface) MarkerCount(kind mapsync.MarkerKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.removed {
		return 0
	}
	n := 0
	for mk := range s.current.markers {
		if mk.opts.Kind == kind {
			n++
		}
	}
	return n
}

func (s *Surface) printf(format string, args ...any) {
	fmt.Fprintf(s.w, format, args...)
}

type textMap struct {
	surface *Surface
	markers map[*textMarker]struct{}
	onClick func()
	removed bool
}

func (m *textMap) AddMarker(opts mapsync.MarkerOptions) (mapsync.Marker, error) {
	m.surface.mu.Lock()
	defer m.surface.mu.Unlock()
	if m.removed {
		return nil, errors.New("map has been removed")
	}
	mk := &textMarker{m: m, opts: opts}
	m.markers[mk] = struct{}{}
	m.surface.printf("  + %s\n", mk)
	return mk, nil
}

func (m *textMap) FlyTo(center models.Coordinate, zoom float64, duration time.Duration) {
	m.surface.mu.Lock()
	defer m.surface.mu.Unlock()
	m.surface.printf("  camera -> %s zoom %g (%s)\n", center, zoom, duration)
}

func (m *textMap) OnClick(fn func()) {
	m.surface.mu.Lock()
	defer m.surface.mu.Unlock()
	m.onClick = fn
}

func (m *textMap) Remove() {
	m.surface.mu.Lock()
	defer m.surface.mu.Unlock()
	m.removed = true
	m.onClick = nil
	m.surface.printf("map unmounted\n")
}

type textMarker struct {
	m           *textMap
	opts        mapsync.MarkerOptions
	highlighted bool
}

func (mk *textMarker) String() string {
	switch mk.opts.Kind {
	case mapsync.KindDeal:
		return fmt.Sprintf("deal #%d %q at %s", mk.opts.DealID, mk.opts.Label, mk.opts.Position)
	default:
		return fmt.Sprintf("%s %q at %s", mk.opts.Kind, mk.opts.Label, mk.opts.Position)
	}
}

func (mk *textMarker) SetHighlighted(on bool) {
	mk.m.surface.mu.Lock()
	defer mk.m.surface.mu.Unlock()
	if mk.highlighted == on {
		return
	}
	mk.highlighted = on
	if on {
		mk.m.surface.printf("  * %s\n", mk)
	} else {
		mk.m.surface.printf("  . %s\n", mk)
	}
}

func (mk *textMarker) Remove() {
	mk.m.surface.mu.Lock()
	defer mk.m.surface.mu.Unlock()
	if _, ok := mk.m.markers[mk]; !ok {
		return
	}
	delete(mk.m.markers, mk)
	mk.m.surface.printf("  - %s\n", mk)
}

var ErrNoLocation = errors.New("no location configured")

// StaticLocator reports a fixed position, or ErrNoLocation when none is set.
type StaticLocator struct {
	Position *models.Coordinate
}

// CurrentPosition returns the configured position.
func (l StaticLocator) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinate{}, err
	}
	if l.Position == nil {
		return models.Coordinate{}, ErrNoLocation
	}
	return *l.Position, nil
}
