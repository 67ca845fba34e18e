// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Weight represents a mass in kilograms with full precision.
// Scale readings arrive with up to two decimal places; effective weights are
// whole kilograms. One decimal representation for both weight and money keeps
// the deduction calculator free of cross-type conversions.
type Weight = decimal.Decimal

// Percent represents deduction percentage points.
type Percent = decimal.Decimal

// NewFromFloat creates a decimal value from a float.
// WARNING: Use NewFromString for precise values.
func NewFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// NewFromString creates a decimal value from a string.
// This is the preferred method for monetary values and weights.
func NewFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustDecimal creates a decimal value from a string, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns the zero decimal value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// Hundred is used for percentage arithmetic.
func Hundred() decimal.Decimal {
	return decimal.NewFromInt(100)
}

// RoundHalfUpKg rounds a weight to whole kilograms, half up.
// decimal.Round rounds half away from zero, which is half-up on the
// non-negative weight domain.
func RoundHalfUpKg(w Weight) Weight {
	return w.Round(0)
}
