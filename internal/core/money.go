// Package core provides money parsing and handling utilities.
//
// Amounts are kept as signed integer paise. Parsing and percentage math go
// through shopspring/decimal so user input is never routed through float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxRupees bounds accepted input well below the int64 paise range.
var maxRupees = decimal.New(1, 12)

// ParseAmount converts a positive decimal string to money with half-up
// rounding to two places.
//
// A dot is always the decimal separator. A single comma followed by one or
// two digits is read as a decimal comma; any other comma is a grouping
// separator, so en-IN input such as "1,23,456.50" is accepted.
//
// Examples:
//
//	ParseAmount("12.34")       -> 1234
//	ParseAmount("12,34")       -> 1234
//	ParseAmount("1,23,456")    -> 12345600
//	ParseAmount("12.345")      -> 1235
func ParseAmount(s string) (Money, error) {
	s = normalizeSeparators(strings.TrimSpace(s))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxRupees) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

func normalizeSeparators(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ",", "")
	}
	if strings.Count(s, ",") == 1 {
		idx := strings.Index(s, ",")
		if frac := len(s) - idx - 1; frac >= 1 && frac <= 2 {
			return s[:idx] + "." + s[idx+1:]
		}
	}
	return strings.ReplaceAll(s, ",", "")
}

// Validate rejects zero amounts; the sign is checked against the type elsewhere.
func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Decimal returns the amount in rupees.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Rupees returns the amount as a float for spreadsheet cells and JSON.
// Use Cents for arithmetic.
func (m Money) Rupees() float64 {
	return m.Decimal().InexactFloat64()
}

// percentOf returns part/whole*100 rounded to two places, or 0 when whole
// is not positive.
func percentOf(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		Round(2).
		InexactFloat64()
}
