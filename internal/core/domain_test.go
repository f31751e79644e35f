package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	for _, bad := range []string{"", "2024-2-29", "2023-02-29", "29/02/2024"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 7))
	if err != nil || string(b) != `"2024-03-07"` {
		t.Fatalf("marshal = %s (err=%v)", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-12-31"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-12-31" {
		t.Fatalf("unmarshal mismatch: %s", d)
	}
}

func TestParseCategory(t *testing.T) {
	if len(Categories()) != 10 {
		t.Fatalf("expected 10 categories, got %d", len(Categories()))
	}
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	for _, bad := range []string{"", "all", "food & dining", "Rent"} {
		if _, err := ParseCategory(bad); !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", bad, err)
		}
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Amount:      Money{Cents: 100},
		Category:    Groceries,
		Date:        NewDate(2025, 1, 1),
		Description: "weekly shop",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	atLimit := good
	atLimit.Amount = Money{Cents: MaxAmountCents}
	if err := atLimit.Validate(); err != nil {
		t.Fatalf("expected the maximum amount to be accepted, got %v", err)
	}

	cases := []struct {
		name  string
		mut   func(*TransactionInput)
		field string
		err   error
	}{
		{"zero amount", func(in *TransactionInput) { in.Amount = Money{} }, "amount", ErrInvalidAmount},
		{"negative amount", func(in *TransactionInput) { in.Amount = Money{Cents: -5} }, "amount", ErrInvalidAmount},
		{"amount above limit", func(in *TransactionInput) { in.Amount = Money{Cents: MaxAmountCents + 1} }, "amount", ErrAmountTooLarge},
		{"unknown category", func(in *TransactionInput) { in.Category = "Rent" }, "category", ErrInvalidCategory},
		{"zero date", func(in *TransactionInput) { in.Date = Date{} }, "date", ErrInvalidDate},
		{"blank description", func(in *TransactionInput) { in.Description = "   " }, "description", ErrEmptyDescription},
		{"long description", func(in *TransactionInput) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }, "description", ErrDescriptionLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mut(&in)
			err := in.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("expected %v in chain, got %v", tc.err, err)
			}
		})
	}
}

func TestNewStoreError(t *testing.T) {
	if NewStoreError("list", nil) != nil {
		t.Fatalf("nil in, nil out")
	}
	if err := NewStoreError("get", ErrNotFound); err != ErrNotFound {
		t.Fatalf("not found must pass through, got %v", err)
	}
	cause := errors.New("connection reset")
	err := NewStoreError("create", cause)
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "create" || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped StoreError, got %v", err)
	}
}
