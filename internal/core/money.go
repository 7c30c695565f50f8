// Package core provides money parsing and handling utilities.
//
// Amounts are Korean won held as int64; the won has no fractional unit,
// so parsing rounds half-up to a whole amount.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmountToWon converts an amount string to whole won.
//
// It accepts thousands separators ("1,000,000") and an optional decimal
// part ("12500.5"), which is rounded half-up. The result is always
// non-negative won. Returns an error for invalid formats or negative
// values.
//
// Examples:
//   ParseAmountToWon("1,000,000") -> 1000000, nil
//   ParseAmountToWon("12500.4")   -> 12500, nil
//   ParseAmountToWon("12500.5")   -> 12501, nil
func ParseAmountToWon(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only non-negative values allowed
		return 0, ErrInvalidAmount
	}
	// Strip currency symbol and thousands separators
	s = strings.TrimPrefix(s, "₩")
	s = strings.ReplaceAll(s, ",", "")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Half-up rounding on the first fractional digit
	if len(fracPart) > 0 && fracPart[0] >= '5' {
		iv++
	}
	return iv, nil
}

// MulRate multiplies a won amount by a decimal rate with half-up rounding.
// Used for VAT and withholding computations where the rate is a small
// statutory fraction (0.1, 0.033, ...).
func MulRate(amount int64, rate float64) int64 {
	v := float64(amount) * rate
	if v < 0 {
		return -int64(-v + 0.5)
	}
	return int64(v + 0.5)
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Won: m.Won + o.Won}
}

// Sub returns the difference of two amounts. The sign is preserved:
// a negative result means over budget.
func (m Money) Sub(o Money) Money {
	return Money{Won: m.Won - o.Won}
}

// Positive reports whether the amount is strictly greater than zero.
func (m Money) Positive() bool {
	return m.Won > 0
}
