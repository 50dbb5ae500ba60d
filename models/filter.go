package models

// Sentinel selector values meaning "do not constrain".
const (
	AllCategories = "All"
	AnyPrice      = "Any price"
	AllDealTypes  = "All deals"
	AnyDay        = "Any day"
	AnyTime       = "Any time"
)

// FilterState holds the four dropdown selections. All four are ANDed together.
type FilterState struct {
	Price     string `json:"price"`
	DealType  string `json:"dealType"`
	DayOfWeek string `json:"dayOfWeek"`
	TimeOfDay string `json:"timeOfDay"`
}

// DefaultFilters returns a FilterState with every selector at its sentinel.
func DefaultFilters() FilterState {
	return FilterState{
		Price:     AnyPrice,
		DealType:  AllDealTypes,
		DayOfWeek: AnyDay,
		TimeOfDay: AnyTime,
	}
}

// Normalized replaces empty selectors with their sentinel.
func (f FilterState) Normalized() FilterState {
	if f.Price == "" {
		f.Price = AnyPrice
	}
	if f.DealType == "" {
		f.DealType = AllDealTypes
	}
	if f.DayOfWeek == "" {
		f.DayOfWeek = AnyDay
	}
	if f.TimeOfDay == "" {
		f.TimeOfDay = AnyTime
	}
	return f
}
