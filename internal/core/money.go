// Package core provides money parsing and handling utilities.
//
// Money wraps a decimal fixed at two fractional digits. Sums stay exact;
// conversion to and from integer cents is used by storage.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

// Money is a non-negative amount with two fractional digits.
type Money struct {
	d decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
var Zero = Money{}

// NewMoney rounds d half-up to two fractional digits.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(moneyScale)}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -moneyScale)}
}

// ParseMoney converts a decimal string to Money with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs and exponents are rejected.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,34")  -> 12.34
//	ParseMoney("12.345") -> 12.35
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

func (m Money) Validate() error {
	if m.d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Cents returns the amount in integer cents.
func (m Money) Cents() int64 {
	return m.d.Mul(hundred).Round(0).IntPart()
}

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// PercentOf returns m as a percentage of total, rounded to one decimal.
// A zero total yields 0 rather than a division error.
func (m Money) PercentOf(total Money) decimal.Decimal {
	if total.d.IsZero() {
		return decimal.Zero
	}
	return m.d.Mul(hundred).Div(total.d).Round(1)
}

// String formats with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(moneyScale)
}
