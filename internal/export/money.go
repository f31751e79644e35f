package export

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"expensetracker/internal/core"
)

// Dollars formats an amount for people: "$1,234.50". Exports keep the bare
// decimal form; this is for statements and pages only.
func Dollars(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}
