package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Need   Classification = "need"
	Want   Classification = "want"
	Saving Classification = "saving"
)

type (
	TransactionType string

	// Classification tags an expense category for 50/30/20 budgeting.
	// The empty string means unclassified.
	Classification string

	Date struct {
		time.Time
	}

	// Transaction is a single dated monetary movement. Amounts are always
	// positive; the direction is carried by Type. Transactions are never
	// mutated by the analysis pipeline.
	Transaction struct {
		ID          string
		Amount      decimal.Decimal
		Category    string
		Description string
		Date        Date
		Type        TransactionType
	}

	// Category is reference data supplied by the caller. Classification is
	// only meaningful for expense categories.
	Category struct {
		Name           string
		Type           TransactionType
		Classification Classification
	}

	// Budget holds spending limits for a half-open period [Start, End).
	// A zero TotalLimit means no overall limit.
	Budget struct {
		Start          Date
		End            Date
		TotalLimit     decimal.Decimal
		CategoryLimits map[string]decimal.Decimal
	}

	// Window is the analysis range, inclusive on both ends.
	Window struct {
		Start Date
		End   Date
	}
)

var (
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidType           = errors.New("invalid transaction type")
	ErrEmptyDescription      = errors.New("empty description")
	ErrEmptyCategory         = errors.New("empty category")
	ErrInvalidRange          = errors.New("invalid range: end before start")
	ErrInvalidClassification = errors.New("invalid classification")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Classification) Valid() bool {
	switch c {
	case Need, Want, Saving:
		return true
	default:
		return false
	}
}

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in the YYYY-MM-DD layout.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date in the YYYY-MM-DD layout.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// SignedAmount returns the amount negated for expenses, unchanged for income.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategory
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.Classification != "" {
		if !c.Classification.Valid() {
			return ErrInvalidClassification
		}
		if c.Type != Expense {
			return fmt.Errorf("%w: only expense categories carry one", ErrInvalidClassification)
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Start.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := b.End.Validate(); err != nil {
		return errors.New("invalid end date: " + err.Error())
	}
	if !b.End.After(b.Start) {
		return ErrInvalidRange
	}
	if b.TotalLimit.Sign() < 0 {
		return ErrInvalidAmount
	}
	for _, limit := range b.CategoryLimits {
		if limit.Sign() <= 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// Contains reports whether d falls inside the budget period [Start, End).
func (b Budget) Contains(d Date) bool {
	return !d.Before(b.Start) && d.Before(b.End)
}

func (w Window) Validate() error {
	if err := w.Start.Validate(); err != nil {
		return errors.New("invalid window start: " + err.Error())
	}
	if err := w.End.Validate(); err != nil {
		return errors.New("invalid window end: " + err.Error())
	}
	if w.End.Before(w.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether d falls inside the window, both ends inclusive.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Months returns the number of calendar months the window touches,
// counting partial months at either end as whole months.
func (w Window) Months() int {
	return (w.End.Year()-w.Start.Year())*12 + w.End.Month() - w.Start.Month() + 1
}
