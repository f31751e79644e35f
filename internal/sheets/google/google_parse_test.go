package google

import (
	"testing"
	"time"

	"expensetracker/internal/core"
)

func TestEncodeRow(t *testing.T) {
	tx := core.Transaction{
		ID:          "b1",
		Owner:       "u1",
		Amount:      core.Money{Cents: 12050},
		Category:    core.BillsAndUtilities,
		Date:        core.NewDate(2024, 2, 29),
		Description: "=HYPERLINK(\"x\")",
		UpdatedAt:   time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600)),
	}
	row := encodeRow(tx)
	if len(row) != len(header) {
		t.Fatalf("row has %d cells, header has %d", len(row), len(header))
	}
	want := []any{"b1", "u1", "2024-02-29", "Bills & Utilities", 120.5, "'=HYPERLINK(\"x\")", "2024-03-01T07:30:00Z"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d (%v) = %#v, want %#v", i, header[i], row[i], want[i])
		}
	}
}

func TestEscapeText(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"Groceries":  "Groceries",
		"=1+1":       "'=1+1",
		"+39 phone":  "'+39 phone",
		"-refund":    "'-refund",
		"@mention":   "'@mention",
		"plain = ok": "plain = ok",
	}
	for in, want := range tests {
		if got := escapeText(in); got != want {
			t.Errorf("escapeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{{"ID"}, {"a"}, {}, {" b "}, {"c"}}
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"c", 5},
		{"missing", 0},
	}
	for _, tt := range tests {
		if got := findRow(values, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
	if findRow(nil, "a") != 0 {
		t.Error("empty sheet must not match")
	}
}

func TestRanges(t *testing.T) {
	if got := rowRange("Transactions", 7); got != "'Transactions'!A7:G7" {
		t.Errorf("rowRange = %q", got)
	}
	if got := idColumnRange("Bob's sheet"); got != "'Bob''s sheet'!A:A" {
		t.Errorf("idColumnRange = %q", got)
	}
	if !hasHeader([][]any{{"ID"}}) || hasHeader([][]any{{"abc"}}) || hasHeader(nil) {
		t.Error("hasHeader misreports")
	}
}
