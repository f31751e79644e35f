package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used for storage, filtering and export.
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds free-text descriptions.
const MaxDescriptionLength = 500

const (
	FoodAndDining     Category = "Food & Dining"
	Transportation    Category = "Transportation"
	Shopping          Category = "Shopping"
	Entertainment     Category = "Entertainment"
	BillsAndUtilities Category = "Bills & Utilities"
	Healthcare        Category = "Healthcare"
	Education         Category = "Education"
	Travel            Category = "Travel"
	Groceries         Category = "Groceries"
	Other             Category = "Other"
)

// AllCategories is the selector value meaning "no category filter".
const AllCategories = "all"

type (
	// Category is one label of the closed set classifying a transaction.
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single recorded expense owned by one user.
	Transaction struct {
		ID          string
		Owner       string
		Amount      Money
		Category    Category
		Date        Date
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
		Version     int64
	}

	// TransactionInput carries the mutable fields of a transaction for create and update.
	TransactionInput struct {
		Amount      Money
		Category    Category
		Date        Date
		Description string
	}
)

var categories = []Category{
	FoodAndDining,
	Transportation,
	Shopping,
	Entertainment,
	BillsAndUtilities,
	Healthcare,
	Education,
	Travel,
	Groceries,
	Other,
}

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAmountTooLarge    = fmt.Errorf("%w: exceeds 999,999,999,999.99", ErrInvalidAmount)
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionLength = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrNotFound          = errors.New("not found")
	ErrEmailTaken        = errors.New("email already registered")
)

// Categories returns the closed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory maps an exact label to its Category.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

// String renders the ISO form, which sorts lexically in chronological order.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// Validate returns the first failing field wrapped in a ValidationError.
func (in TransactionInput) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if !in.Category.Valid() {
		return &ValidationError{Field: "category", Err: fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)}
	}
	if err := in.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if len(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionLength}
	}
	return nil
}

// Input returns the mutable part of the transaction.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Amount:      t.Amount,
		Category:    t.Category,
		Date:        t.Date,
		Description: t.Description,
	}
}
