// Package export renders transaction lists as downloadable documents.
package export

import (
	"io"
	"strings"

	"expensetracker/internal/core"
)

// CSVFilename is the default download name for CSV exports.
const CSVFilename = "expenses.csv"

// CSVHeader is the first line of every CSV export.
const CSVHeader = "Date,Category,Amount,Description"

// EncodeCSV renders txs in the given order. Category and Description are
// always quoted with embedded quotes doubled; Date and Amount are bare.
// Lines are joined by "\n" with no trailing newline.
func EncodeCSV(txs []core.Transaction) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	for _, t := range txs {
		b.WriteByte('\n')
		b.WriteString(t.Date.String())
		b.WriteByte(',')
		b.WriteString(quote(string(t.Category)))
		b.WriteByte(',')
		b.WriteString(t.Amount.Plain())
		b.WriteByte(',')
		b.WriteString(quote(t.Description))
	}
	return b.String()
}

// WriteCSV streams EncodeCSV output to w.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	_, err := io.WriteString(w, EncodeCSV(txs))
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
