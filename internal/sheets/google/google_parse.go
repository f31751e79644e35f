package google

import (
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// Columns of the mirror sheet, A through G.
var header = []any{"ID", "Owner", "Date", "Category", "Amount", "Description", "Updated"}

const lastColumn = "G"

// encodeRow renders t in column order. Values are written USER_ENTERED so
// dates and amounts become typed cells; free text is escaped so it is never
// evaluated as a formula.
func encodeRow(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Owner,
		t.Date.String(),
		escapeText(string(t.Category)),
		t.Amount.Float(),
		escapeText(t.Description),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// escapeText prefixes an apostrophe to values Sheets would parse as a formula.
func escapeText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

// findRow returns the 1-based sheet row whose first column equals id, or 0.
// values is column A as read from the sheet, starting at row 1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// hasHeader reports whether the first row of column A is the ID header.
func hasHeader(values [][]any) bool {
	return len(values) > 0 && len(values[0]) > 0 && fmt.Sprint(values[0][0]) == header[0]
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}

func idColumnRange(sheet string) string {
	return quoteSheet(sheet) + "!A:A"
}
