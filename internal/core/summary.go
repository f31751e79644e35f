package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// CategoryTotals holds per-category sums in the order each category was first seen.
type CategoryTotals []CategoryAmount

// Map returns the totals keyed by category.
func (ct CategoryTotals) Map() map[Category]Money {
	m := make(map[Category]Money, len(ct))
	for _, c := range ct {
		m[c.Category] = c.Amount
	}
	return m
}

// DayAmount is one point of a daily series.
type DayAmount struct {
	Date   Date   `json:"date"`
	Label  string `json:"label"` // "Jan 02"
	Amount Money  `json:"amount"`
}

// Summary is the set of headline statistics shown on the dashboard cards.
type Summary struct {
	Total      Money `json:"total"`
	MonthTotal Money `json:"month_total"`
	Average    Money `json:"average"`
	Count      int   `json:"count"`
}

// Dashboard bundles every view derived from one owner's transactions under a filter.
type Dashboard struct {
	Filter        Filter         `json:"filter"`
	Transactions  []Transaction  `json:"-"`
	Summary       Summary        `json:"summary"`
	ByCategory    CategoryTotals `json:"by_category"`
	TopCategories CategoryTotals `json:"top_categories"`
	Daily         []DayAmount    `json:"daily"`
	// HasAny is true when the unfiltered list is non-empty.
	HasAny bool `json:"has_any"`
}
