package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"expensetracker/internal/core"
)

// PDFFilename is the default download name for PDF statements.
const PDFFilename = "expenses.pdf"

// Statement is the content of a PDF export.
type Statement struct {
	Owner       string // shown in the header, usually the account email
	Filter      core.Filter
	GeneratedAt time.Time
	Dashboard   core.Dashboard
}

// BuildPDF renders a statement: summary block, category breakdown and the
// transaction rows in the order given.
func BuildPDF(st Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Expense Statement", false)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Expense Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr("Account: "+st.Owner))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Generated: "+st.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr("Filter: "+describeFilter(st.Filter)))
	pdf.Ln(10)

	sum := st.Dashboard.Summary
	pdf.SetFont("Helvetica", "B", 12)
	for _, row := range [][2]string{
		{"Total Expenses", Dollars(sum.Total)},
		{"This Month", Dollars(sum.MonthTotal)},
		{"Average Transaction", Dollars(sum.Average)},
		{"Transactions", fmt.Sprintf("%d", sum.Count)},
	} {
		pdf.Cell(70, 7, row[0])
		pdf.Cell(40, 7, row[1])
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(st.Dashboard.ByCategory) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, "Category Breakdown")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, c := range st.Dashboard.ByCategory {
			pdf.Cell(70, 7, tr(string(c.Category)))
			pdf.Cell(40, 7, Dollars(c.Amount))
			pdf.Ln(7)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(28, 7, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(42, 7, "Category", "B", 0, "L", false, 0, "")
	pdf.CellFormat(28, 7, "Amount", "B", 0, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Description", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, t := range st.Dashboard.Transactions {
		pdf.CellFormat(28, 6, t.Date.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(42, 6, tr(string(t.Category)), "", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, Dollars(t.Amount), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, tr(truncate(t.Description, 60)), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func describeFilter(f core.Filter) string {
	if f.IsZero() {
		return "all transactions"
	}
	from, to, cat := f.StartDate, f.EndDate, f.Category
	if from == "" {
		from = "..."
	}
	if to == "" {
		to = "..."
	}
	if cat == "" {
		cat = core.AllCategories
	}
	return fmt.Sprintf("%s to %s, category %s", from, to, cat)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
