// Package core provides money parsing and handling utilities.
//
// Amounts are carried as shopspring decimals end to end; floats only
// appear in derived ratios and display values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept when splitting
// a group total across slots or averaging.
const DivisionPrecision = 16

// ParseAmount converts an exported amount to a decimal.
//
// It accepts an optional currency sign (¥ or ￥) and thousands separators.
// Negative values and empty strings are rejected; zero is accepted.
//
// Examples:
//
//	ParseAmount("45")        -> 45
//	ParseAmount("¥1,234.50") -> 1234.5
//	ParseAmount("-3")        -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SumAmounts adds the amount of every row.
func SumAmounts(rows []OrderRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// DivInt divides d by n at DivisionPrecision. n must be positive.
func DivInt(d decimal.Decimal, n int) decimal.Decimal {
	return d.DivRound(decimal.NewFromInt(int64(n)), DivisionPrecision)
}

// FormatYuan renders an amount for humans, e.g. "¥12.30" or "-¥4.00".
func FormatYuan(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-¥" + d.Neg().StringFixed(2)
	}
	return "¥" + d.StringFixed(2)
}
