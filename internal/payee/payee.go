// Package payee normalizes merchant strings so that formatting drift
// between exports ("STARBUCKS #1234" vs "Starbucks 1234") compares
// equal. The display payee keeps its original text; normalization is
// only a comparison form.
package payee

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes diacritics: NFD decompose, drop combining marks,
// recompose.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases s, strips diacritics and punctuation, and
// collapses runs of whitespace. Digits are kept: store numbers are
// often the only thing distinguishing two branches of a chain.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Equal reports whether two payees normalize to the same form.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
