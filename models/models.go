package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day is the weekday a deal runs on, or EveryDay for deals that run all week.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
	EveryDay  Day = "Every day"
)

// Weekdays lists the seven named days in calendar order, Monday first.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Deal represents one promotional offer at a venue. Latitude and longitude are
// kept as the decimal strings the database returns; use Coordinate to parse them.
type Deal struct {
	ID             int64           `json:"id" yaml:"-"`
	Title          string          `json:"title" yaml:"title" validate:"required"`
	Description    *string         `json:"description" yaml:"description"`
	Location       string          `json:"location" yaml:"location" validate:"required"`
	Latitude       string          `json:"latitude" yaml:"latitude" validate:"required,latitude"`
	Longitude      string          `json:"longitude" yaml:"longitude" validate:"required,longitude"`
	Category       *string         `json:"category" yaml:"category"`
	Price          *string         `json:"price" yaml:"price" validate:"omitempty,numeric"`
	OriginalPrice  *string         `json:"originalPrice" yaml:"originalPrice" validate:"omitempty,numeric"`
	Day            Day             `json:"day" yaml:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday 'Every day'"`
	IsRecurring    bool            `json:"isRecurring" yaml:"isRecurring"`
	TimeWindow     *string         `json:"timeWindow" yaml:"timeWindow"`
	StartTime      *string         `json:"startTime" yaml:"startTime" validate:"omitempty,hhmm"`
	EndTime        *string         `json:"endTime" yaml:"endTime" validate:"omitempty,hhmm"`
	Images         []string        `json:"images" yaml:"images" validate:"omitempty,dive,url"`
	OperatingHours *OperatingHours `json:"operatingHours" yaml:"operatingHours"`
	StartDate      *time.Time      `json:"startDate" yaml:"startDate"`
	EndDate        *time.Time      `json:"endDate" yaml:"endDate"`
	IsActive       bool            `json:"isActive" yaml:"isActive"`
	CreatedAt      time.Time       `json:"createdAt" yaml:"-"`
	UpdatedAt      *time.Time      `json:"updatedAt" yaml:"-"`
}

// Coordinate is a geographic point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lng)
}

// ParseCoordinate parses a "lat,lng" pair.
func ParseCoordinate(s string) (Coordinate, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected lat,lng", s)
	}
	return parseLatLng(lat, lng)
}

var ErrInvalidCoordinate = errors.New("invalid coordinate")

func parseLatLng(latStr, lngStr string) (Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, lngStr)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return Coordinate{}, fmt.Errorf("%w: %s,%s is not a number", ErrInvalidCoordinate, latStr, lngStr)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, fmt.Errorf("%w: %s,%s out of range", ErrInvalidCoordinate, latStr, lngStr)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}

// Coordinate parses the deal's latitude/longitude strings.
func (d Deal) Coordinate() (Coordinate, error) {
	return parseLatLng(d.Latitude, d.Longitude)
}

// HasCoordinate reports whether both coordinate strings are set.
func (d Deal) HasCoordinate() bool {
	return strings.TrimSpace(d.Latitude) != "" && strings.TrimSpace(d.Longitude) != ""
}

// PriceValue returns the numeric price used for bracket comparisons.
// Missing, non-numeric or non-finite prices count as 0.
func (d Deal) PriceValue() float64 {
	if d.Price == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*d.Price), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CategoryName returns the category or "" for uncategorized deals.
func (d Deal) CategoryName() string {
	if d.Category == nil {
		return ""
	}
	return *d.Category
}

// TimeWindowText returns the time window or "" if the deal has none.
func (d Deal) TimeWindowText() string {
	if d.TimeWindow == nil {
		return ""
	}
	return *d.TimeWindow
}

// HasImages reports whether the deal has images to show instead of the placeholder.
func (d Deal) HasImages() bool {
	return len(d.Images) > 0
}

// ImageAt returns the image for a carousel position. The index wraps in both
// directions so stepping back from the first image lands on the last one.
func (d Deal) ImageAt(i int) (string, bool) {
	n := len(d.Images)
	if n == 0 {
		return "", false
	}
	i %= n
	if i < 0 {
		i += n
	}
	return d.Images[i], true
}

// Hours is one day's opening window, "HH:MM" strings.
type Hours struct {
	Open  string `json:"open" yaml:"open" validate:"omitempty,hhmm"`
	Close string `json:"close" yaml:"close" validate:"omitempty,hhmm"`
}

// OperatingHours holds the venue's weekly opening hours. It is stored as JSON.
type OperatingHours struct {
	Monday    Hours `json:"monday" yaml:"monday"`
	Tuesday   Hours `json:"tuesday" yaml:"tuesday"`
	Wednesday Hours `json:"wednesday" yaml:"wednesday"`
	Thursday  Hours `json:"thursday" yaml:"thursday"`
	Friday    Hours `json:"friday" yaml:"friday"`
	Saturday  Hours `json:"saturday" yaml:"saturday"`
	Sunday    Hours `json:"sunday" yaml:"sunday"`
}

// DefaultOperatingHours is 09:00-22:00, extended to 23:00 on Friday and Saturday.
func DefaultOperatingHours() OperatingHours {
	weekday := Hours{Open: "09:00", Close: "22:00"}
	weekend := Hours{Open: "09:00", Close: "23:00"}
	return OperatingHours{
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekend,
		Saturday:  weekend,
		Sunday:    weekday,
	}
}

// Value stores the hours as a JSON document.
func (h OperatingHours) Value() (driver.Value, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads the JSON document written by Value.
func (h *OperatingHours) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("operating hours: unsupported type %T", src)
	}
}

// Place is a single geocoding result.
type Place struct {
	Name       string     `json:"place_name"`
	Coordinate Coordinate `json:"coordinate"`
}

// ErrorResponse is the JSON error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
