package mapsync

import (
	"context"
	"time"

	"dealsmap/models"
)

// MarkerKind tells the rendering surface which visual to use for a marker.
type MarkerKind int

const (
	KindDeal MarkerKind = iota
	KindSearch
	KindUser
)

func (k MarkerKind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindUser:
		return "user"
	default:
		return "deal"
	}
}

// MarkerOptions describes a marker to place. OnClick may be nil.
type MarkerOptions struct {
	Position models.Coordinate
	Kind     MarkerKind
	DealID   int64
	Label    string
	OnClick  func()
}

// Marker is a handle to a marker on a Map.
type Marker interface {
	SetHighlighted(on bool)
	Remove()
}

// Map is the capability set consumed from the mapping SDK.
type Map interface {
	AddMarker(opts MarkerOptions) (Marker, error)
	FlyTo(center models.Coordinate, zoom float64, duration time.Duration)
	// OnClick registers a handler for clicks on the map background.
	OnClick(fn func())
	Remove()
}

// Surface creates map instances bound to a rendering surface.
type Surface interface {
	NewMap(center models.Coordinate, zoom float64) (Map, error)
}

// Geocoder resolves free text to places. An empty slice means no results.
type Geocoder interface {
	Geocode(ctx context.Context, query string, proximity *models.Coordinate) ([]models.Place, error)
}

// Locator reports the device position.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
}
