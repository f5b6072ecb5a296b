// Package core holds the transaction domain: types, invariants and money
// handling shared by the web client, the terminal client and the dev API.
//
// Prices are kept as integer cents. The API speaks plain JSON numbers
// (45.5), so conversion at the boundary goes through shopspring/decimal to
// keep binary floating point out of the stored amount.
package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a user-typed amount to positive cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Anything
// beyond two fraction digits is rounded half-up. Signs, exponents, thousands
// separators and zero amounts are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("45.5")   -> 4550, nil
//	ParseDecimalToCents("45,50")  -> 4550, nil
//	ParseDecimalToCents("1.005")  -> 101, nil
//	ParseDecimalToCents("abc")    -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	if s == "." {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return centsFromDecimal(d)
}

func centsFromDecimal(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(hundred).Round(0)
	if !scaled.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !scaled.IsInteger() || scaled.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return scaled.IntPart(), nil
}

// NewMoney builds a Money from a decimal amount such as 45.5.
func NewMoney(amount float64) Money {
	return Money{Cents: decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m minus o. The result may be negative (balances).
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// MarshalJSON writes the amount as a bare JSON number with no trailing zeros.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		m.Cents = 0
		return nil
	}
	b = bytes.Trim(b, `"`)
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("decode price %q: %w", string(b), err)
	}
	m.Cents = d.Mul(hundred).Round(0).IntPart()
	return nil
}
