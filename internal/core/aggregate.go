package core

import (
	"sort"
	"time"
)

// Filter is the interactive filter state. Empty fields do not constrain.
type Filter struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Category  string `json:"category"`
}

// Apply narrows txs by date range and then by category.
func (f Filter) Apply(txs []Transaction) []Transaction {
	return FilterByCategory(FilterByDateRange(txs, f.StartDate, f.EndDate), f.Category)
}

// IsZero reports whether the filter leaves every transaction in place.
func (f Filter) IsZero() bool {
	return f.StartDate == "" && f.EndDate == "" && (f.Category == "" || f.Category == AllCategories)
}

// Total sums the amounts of txs. An empty list totals zero.
func Total(txs []Transaction) Money {
	var sum Money
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// FilterByCategory keeps transactions whose category equals selector.
// "" and "all" return txs itself. Unknown labels match nothing.
func FilterByCategory(txs []Transaction, selector string) []Transaction {
	if selector == "" || selector == AllCategories {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if string(t.Category) == selector {
			out = append(out, t)
		}
	}
	return out
}

// FilterByDateRange keeps transactions dated within [start, end], both inclusive.
// Bounds are ISO dates compared lexically; an empty bound is open.
func FilterByDateRange(txs []Transaction, start, end string) []Transaction {
	if start == "" && end == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		d := t.Date.String()
		if start != "" && d < start {
			continue
		}
		if end != "" && d > end {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ByCategory sums amounts per category in first-encounter order.
func ByCategory(txs []Transaction) CategoryTotals {
	index := make(map[Category]int)
	out := CategoryTotals{}
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			index[t.Category] = len(out)
			out = append(out, CategoryAmount{Category: t.Category, Amount: t.Amount})
			continue
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// TopCategories returns the n largest totals, descending.
// Equal totals keep their first-encounter order.
func TopCategories(totals CategoryTotals, n int) CategoryTotals {
	if n <= 0 || len(totals) == 0 {
		return CategoryTotals{}
	}
	ranked := append(CategoryTotals(nil), totals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Cents > ranked[j].Amount.Cents
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthBounds returns the first and last calendar day of the month containing now.
func MonthBounds(now time.Time) (first, last Date) {
	first = NewDate(now.Year(), int(now.Month()), 1)
	last = Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// MonthScope keeps transactions dated inside the calendar month containing now.
func MonthScope(txs []Transaction, now time.Time) []Transaction {
	first, last := MonthBounds(now)
	return FilterByDateRange(txs, first.String(), last.String())
}

// DailySeries builds one entry per day of the given month, zero-filled,
// in chronological order. Transactions outside the month are ignored.
func DailySeries(txs []Transaction, year int, month time.Month) []DayAmount {
	first := NewDate(year, int(month), 1)
	days := first.AddDate(0, 1, -1).Day()

	byDay := make(map[string]Money, days)
	for _, t := range txs {
		k := t.Date.String()
		byDay[k] = byDay[k].Add(t.Amount)
	}

	series := make([]DayAmount, days)
	for i := range series {
		d := Date{Time: first.AddDate(0, 0, i)}
		series[i] = DayAmount{
			Date:   d,
			Label:  d.Format("Jan 02"),
			Amount: byDay[d.String()],
		}
	}
	return series
}

// Summarize computes the dashboard headline numbers for txs.
// Average rounds half-up to the cent and is zero for an empty list.
func Summarize(txs []Transaction, now time.Time) Summary {
	total := Total(txs)
	s := Summary{
		Total:      total,
		MonthTotal: Total(MonthScope(txs, now)),
		Count:      len(txs),
	}
	if s.Count > 0 {
		n := int64(s.Count)
		q, r := total.Cents/n, total.Cents%n
		if r >= n-r {
			q++
		}
		s.Average = Money{Cents: q}
	}
	return s
}

// Derive recomputes every dashboard view from the unfiltered list so that
// stats, charts and the table always agree.
func Derive(all []Transaction, f Filter, now time.Time, topN int) Dashboard {
	filtered := f.Apply(all)
	byCat := ByCategory(filtered)
	return Dashboard{
		Filter:        f,
		Transactions:  filtered,
		Summary:       Summarize(filtered, now),
		ByCategory:    byCat,
		TopCategories: TopCategories(byCat, topN),
		Daily:         DailySeries(filtered, now.Year(), now.Month()),
		HasAny:        len(all) > 0,
	}
}
