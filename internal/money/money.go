// Package money parses currency-formatted strings into exact decimals.
// Floating point is never used for amounts.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyRunes are symbols stripped before numeric parsing.
const currencyRunes = "$€£¥₹₩₦"

// Parse converts a currency-formatted string into a decimal amount.
// Thousands separators and currency symbols are stripped, parentheses
// and a leading minus both mean negative, and the empty string is
// zero. The second return is false when the remainder is not numeric.
func Parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencyRunes, r) || r == ',' || r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, s)

	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")

	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
