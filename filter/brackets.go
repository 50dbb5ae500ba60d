package filter

import (
	"regexp"
	"strings"

	"dealsmap/models"
)

// PriceBracket is a named price range in rand.
type PriceBracket struct {
	Label    string
	Contains func(price float64) bool
}

// PriceBrackets are the fixed price ranges. Deals without a price count as 0,
// so they only ever land in "Under R50".
var PriceBrackets = []PriceBracket{
	{Label: "Under R50", Contains: func(p float64) bool { return p < 50 }},
	{Label: "R50 - R100", Contains: func(p float64) bool { return p >= 50 && p <= 100 }},
	{Label: "R100 - R200", Contains: func(p float64) bool { return p >= 100 && p <= 200 }},
	{Label: "Over R200", Contains: func(p float64) bool { return p > 200 }},
}

// TimeBucket maps a time-of-day label to a keyword heuristic over the deal's
// free-text time window. Matching is case-insensitive.
type TimeBucket struct {
	Label string
	Match func(window string) bool
}

var (
	eveningHour  = regexp.MustCompile(`\b[5-9]\s*pm`)
	lateNightPM  = regexp.MustCompile(`\b1[0-2]\s*pm`)
	earlyMorning = regexp.MustCompile(`\b[1-6]\s*am`)
)

var TimeBuckets = []TimeBucket{
	{Label: "Morning", Match: func(w string) bool {
		w = strings.ToLower(w)
		return strings.Contains(w, "am") || strings.Contains(w, "morning")
	}},
	{Label: "Afternoon", Match: func(w string) bool {
		w = strings.ToLower(w)
		return strings.Contains(w, "pm") || strings.Contains(w, "afternoon")
	}},
	{Label: "Evening", Match: func(w string) bool {
		w = strings.ToLower(w)
		return strings.Contains(w, "evening") || eveningHour.MatchString(w)
	}},
	{Label: "Late night", Match: func(w string) bool {
		w = strings.ToLower(w)
		return strings.Contains(w, "night") || lateNightPM.MatchString(w) || earlyMorning.MatchString(w)
	}},
}

// Options lists the values offered by each filter dropdown, sentinel first.
type Options struct {
	Price     []string `json:"price"`
	DealType  []string `json:"dealType"`
	DayOfWeek []string `json:"dayOfWeek"`
	TimeOfDay []string `json:"timeOfDay"`
}

// DefaultCategories are the category buttons shown when the catalogue is empty.
var DefaultCategories = []string{"Food", "Shopping", "Fitness"}

// FilterOptions builds the dropdown option lists. categories are the known
// category names without the "All" sentinel.
func FilterOptions(categories []string) Options {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	opts := Options{
		Price:     []string{models.AnyPrice},
		DealType:  append([]string{models.AllDealTypes}, categories...),
		DayOfWeek: []string{models.AnyDay},
		TimeOfDay: []string{models.AnyTime},
	}
	for _, b := range PriceBrackets {
		opts.Price = append(opts.Price, b.Label)
	}
	for _, d := range models.Weekdays {
		opts.DayOfWeek = append(opts.DayOfWeek, string(d))
	}
	for _, b := range TimeBuckets {
		opts.TimeOfDay = append(opts.TimeOfDay, b.Label)
	}
	return opts
}
