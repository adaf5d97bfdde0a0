// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing purchase amounts from user input
// into exact decimals. Binary floating point never touches an amount.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CentPlaces is the precision amounts are normalized to.
const CentPlaces = 2

// MaxAmount is the largest purchase the NUMERIC(12,2) amount column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ParseAmount converts a decimal string to an exact amount rounded to the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place. The sign is preserved; callers
// decide whether non-positive amounts are acceptable. Amounts whose magnitude
// exceeds MaxAmount are rejected with ErrAmountTooLarge.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d = d.Round(CentPlaces)
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(CentPlaces)
}
