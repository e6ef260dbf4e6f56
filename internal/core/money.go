// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal so that ratio boundaries and
// ringgit totals are compared exactly.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmountFormat is returned when a string is not a plain decimal number.
var ErrInvalidAmountFormat = errors.New("invalid amount format")

// ParseAmount converts a decimal string to a Decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an optional
// "RM" prefix and surrounding whitespace. Negative values parse successfully;
// range checks belong to the record's Validate method.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("RM 1500")  -> 1500, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "RM"), "rm"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmountFormat
	}
	return d, nil
}

// FormatRM renders an amount with two decimals, e.g. "1500.00".
func FormatRM(d decimal.Decimal) string {
	return d.StringFixed(2)
}
