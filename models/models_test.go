package models

import (
	"errors"
	"math"
	"testing"
)

func TestDeal_Coordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lng     string
		want    Coordinate
		wantErr bool
	}{
		{name: "Cape Town", lat: "-33.9249", lng: "18.4241", want: Coordinate{Lat: -33.9249, Lng: 18.4241}},
		{name: "Padded", lat: " -33.9 ", lng: " 18.4 ", want: Coordinate{Lat: -33.9, Lng: 18.4}},
		{name: "Empty", lat: "", lng: "18.4", wantErr: true},
		{name: "Not a number", lat: "north", lng: "18.4", wantErr: true},
		{name: "NaN latitude", lat: "NaN", lng: "18.4", wantErr: true},
		{name: "NaN longitude", lat: "-33.9", lng: "nan", wantErr: true},
		{name: "Infinite latitude", lat: "+Inf", lng: "18.4", wantErr: true},
		{name: "Latitude out of range", lat: "-91", lng: "18.4", wantErr: true},
		{name: "Longitude out of range", lat: "-33.9", lng: "180.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Deal{Latitude: tt.lat, Longitude: tt.lng}
			got, err := d.Coordinate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCoordinate) {
					t.Errorf("Coordinate() error = %v, want ErrInvalidCoordinate", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Coordinate() returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Coordinate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	got, err := ParseCoordinate("-33.9249,18.4241")
	if err != nil || got != (Coordinate{Lat: -33.9249, Lng: 18.4241}) {
		t.Errorf("ParseCoordinate() = %v, %v", got, err)
	}
	if _, err := ParseCoordinate("-33.9249"); err == nil {
		t.Error("expected error without a comma")
	}
	if _, err := ParseCoordinate("NaN,NaN"); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestDeal_PriceValue(t *testing.T) {
	price := func(s string) *string { return &s }
	tests := []struct {
		name  string
		price *string
		want  float64
	}{
		{name: "Null", price: nil, want: 0},
		{name: "Number", price: price("85"), want: 85},
		{name: "Decimal", price: price(" 62.5 "), want: 62.5},
		{name: "Text", price: price("R120"), want: 0},
		{name: "NaN", price: price("NaN"), want: 0},
		{name: "Infinity", price: price("Inf"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deal{Price: tt.price}.PriceValue()
			if math.IsNaN(got) || got != tt.want {
				t.Errorf("PriceValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeal_ImageAt(t *testing.T) {
	d := Deal{Images: []string{"a", "b", "c"}}
	cases := map[int]string{0: "a", 2: "c", 3: "a", -1: "c", -4: "c"}
	for i, want := range cases {
		if got, ok := d.ImageAt(i); !ok || got != want {
			t.Errorf("ImageAt(%d) = %q, %v; want %q", i, got, ok, want)
		}
	}
	if _, ok := (Deal{}).ImageAt(0); ok {
		t.Error("ImageAt on a deal without images should report false")
	}
}
