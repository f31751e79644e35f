// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Text and float inputs are converted
// through shopspring/decimal so that no binary floating point rounding
// leaks into stored values.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest accepted amount, 999,999,999,999.99. It fits
// NUMERIC(14, 2) and leaves int64 headroom for summing many rows.
const MaxAmountCents int64 = 99_999_999_999_999

var maxCents = decimal.NewFromInt(MaxAmountCents)

// IsValidAmount reports whether x is a spendable amount: finite and strictly positive.
func IsValidAmount(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Blank,
// non-numeric, NaN, infinite, zero, negative and over-limit inputs are
// rejected with a ValidationError wrapping ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("12.345") -> 1235 cents (half-up)
//	ParseAmount("0.004")  -> error (rounds to zero)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, invalidAmount()
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, invalidAmount()
	}
	return moneyFromDecimal(d)
}

// MoneyFromFloat converts a float amount after checking it with IsValidAmount.
func MoneyFromFloat(x float64) (Money, error) {
	if !IsValidAmount(x) {
		return Money{}, invalidAmount()
	}
	return moneyFromDecimal(decimal.NewFromFloat(x))
}

func moneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.IsPositive() {
		return Money{}, invalidAmount()
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() {
		return Money{}, invalidAmount()
	}
	if cents.GreaterThan(maxCents) {
		return Money{}, &ValidationError{Field: "amount", Err: ErrAmountTooLarge}
	}
	return Money{Cents: cents.IntPart()}, nil
}

func invalidAmount() error {
	return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
}

// Decimal returns the exact decimal value of the amount.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals ("120.50").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Plain renders the shortest exact decimal ("120.5", "3").
func (m Money) Plain() string {
	return m.Decimal().String()
}

// Float returns the value as a float64 for chart payloads only.
// Use cents for calculations.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
