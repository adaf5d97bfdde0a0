package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date without time of day, always normalized to UTC midnight.
	Date struct {
		time.Time
	}

	Customer struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is a purchase owned by the storage layer. The core only reads it.
	Transaction struct {
		ID         int64               `json:"id"`
		CustomerID int64               `json:"customerId"`
		Amount     decimal.NullDecimal `json:"amount"`
		OccurredOn Date                `json:"transactionDate"`
	}

	// TransactionInput is an unvalidated request to record a transaction.
	TransactionInput struct {
		CustomerID *int64
		Amount     *decimal.Decimal
		OccurredOn *Date
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	ErrValidation       = errors.New("validation failed")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountTooLarge   = fmt.Errorf("%w: exceeds %s", ErrInvalidAmount, MaxAmount.StringFixed(CentPlaces))
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("empty customer name")
)

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t, keeping t's calendar date in its own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddMonths moves the date by n calendar months, clamping the day to the
// last day of the target month (Mar 31 - 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates stay "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// Scan implements sql.Scanner. Drivers hand dates back either as time.Time
// (postgres DATE) or as text (sqlite TEXT column).
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidDate, src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return d.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (c Customer) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return errors.New("customer name too long (max 200 characters)")
	}
	return nil
}

// Validate checks the input and returns the transaction to persist.
// Every problem is reported, not just the first one.
func (in TransactionInput) Validate() (Transaction, error) {
	var verr ValidationError
	if in.CustomerID == nil {
		verr.Add("customerId", "Customer ID is required")
	}
	switch {
	case in.Amount == nil:
		verr.Add("amount", "Amount is required")
	case !in.Amount.IsPositive():
		verr.Add("amount", "Amount must be positive")
	case in.Amount.GreaterThan(MaxAmount):
		verr.Add("amount", "Amount must not exceed "+FormatAmount(MaxAmount))
	}
	if in.OccurredOn == nil || in.OccurredOn.IsZero() {
		verr.Add("transactionDate", "Transaction date is required")
	}
	if verr.HasErrors() {
		return Transaction{}, &verr
	}
	return Transaction{
		CustomerID: *in.CustomerID,
		Amount:     decimal.NewNullDecimal(*in.Amount),
		OccurredOn: *in.OccurredOn,
	}, nil
}
