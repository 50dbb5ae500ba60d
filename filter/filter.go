// Package filter computes the visible subset of deals for a category and a set
// of dropdown filters. Everything here is pure: no I/O, no shared state.
package filter

import (
	"dealsmap/models"
)

// Visible returns the deals that pass the category selector and every filter,
// in their original order. The input slice is never modified.
func Visible(deals []models.Deal, category string, filters models.FilterState) []models.Deal {
	filters = filters.Normalized()
	if category == "" {
		category = models.AllCategories
	}

	out := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if Match(d, category, filters) {
			out = append(out, d)
		}
	}
	return out
}

// Match reports whether a single deal passes all predicates.
func Match(d models.Deal, category string, filters models.FilterState) bool {
	return matchCategory(d, category) &&
		matchPrice(d, filters.Price) &&
		matchDealType(d, filters.DealType) &&
		matchDay(d, filters.DayOfWeek) &&
		matchTime(d, filters.TimeOfDay)
}

func matchCategory(d models.Deal, category string) bool {
	if category == models.AllCategories {
		return true
	}
	return d.Category != nil && *d.Category == category
}

// matchDealType checks the deal type dropdown. It reads the same field as the
// category selector; both must pass when both are set.
func matchDealType(d models.Deal, dealType string) bool {
	if dealType == models.AllDealTypes {
		return true
	}
	return d.Category != nil && *d.Category == dealType
}

func matchDay(d models.Deal, day string) bool {
	if day == models.AnyDay {
		return true
	}
	return string(d.Day) == day || d.Day == models.EveryDay
}

func matchPrice(d models.Deal, bracket string) bool {
	if bracket == models.AnyPrice {
		return true
	}
	for _, b := range PriceBrackets {
		if b.Label == bracket {
			return b.Contains(d.PriceValue())
		}
	}
	return false
}

func matchTime(d models.Deal, bucket string) bool {
	if bucket == models.AnyTime {
		return true
	}
	if d.TimeWindow == nil || *d.TimeWindow == "" {
		return false
	}
	for _, b := range TimeBuckets {
		if b.Label == bucket {
			return b.Match(*d.TimeWindow)
		}
	}
	return false
}
