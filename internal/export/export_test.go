package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Amount: core.Money{Cents: 12050}, Category: core.FoodAndDining, Date: core.NewDate(2024, 1, 5), Description: "Dinner"},
		{ID: "2", Amount: core.Money{Cents: 300}, Category: core.Travel, Date: core.NewDate(2024, 1, 6), Description: `The "big" trip, day 1`},
		{ID: "3", Amount: core.Money{Cents: 1}, Category: core.Other, Date: core.NewDate(2024, 1, 7), Description: ""},
	}
}

func TestEncodeCSV(t *testing.T) {
	got := EncodeCSV(sample())
	want := strings.Join([]string{
		"Date,Category,Amount,Description",
		`2024-01-05,"Food & Dining",120.5,"Dinner"`,
		`2024-01-06,"Travel",3,"The ""big"" trip, day 1"`,
		`2024-01-07,"Other",0.01,""`,
	}, "\n")
	assert.Equal(t, want, got)
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestEncodeCSVEmpty(t *testing.T) {
	assert.Equal(t, CSVHeader, EncodeCSV(nil))
}

func TestCSVRoundTrip(t *testing.T) {
	txs := sample()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(txs)+1)
	assert.Equal(t, []string{"Date", "Category", "Amount", "Description"}, records[0])

	for i, rec := range records[1:] {
		d, err := core.ParseDate(rec[0])
		require.NoError(t, err)
		assert.Equal(t, txs[i].Date.String(), d.String())

		amount, err := core.ParseAmount(rec[2])
		require.NoError(t, err)
		assert.Equal(t, txs[i].Amount, amount)

		assert.Equal(t, string(txs[i].Category), rec[1])
		assert.Equal(t, txs[i].Description, rec[3])
	}
}

func TestBuildPDF(t *testing.T) {
	now := time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
	dash := core.Derive(sample(), core.Filter{}, now, 5)

	out, err := BuildPDF(Statement{
		Owner:       "someone@example.com",
		GeneratedAt: now,
		Dashboard:   dash,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output is not a PDF")
}

func TestDescribeFilter(t *testing.T) {
	assert.Equal(t, "all transactions", describeFilter(core.Filter{Category: "all"}))
	assert.Equal(t, "2024-01-01 to ..., category Travel",
		describeFilter(core.Filter{StartDate: "2024-01-01", Category: "Travel"}))
}

func TestDollars(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{12050, "$120.50"},
		{123456789, "$1,234,567.89"},
		{-250, "-$2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Dollars(core.Money{Cents: tt.cents}))
	}
}
