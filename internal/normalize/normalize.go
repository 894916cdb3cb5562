// Package normalize canonicalizes the free-form strings that reach the field mapper.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Key returns the canonical form of a synonym, field code or CSV header:
// NFC composed, control characters and byte order marks removed, lowercased.
// Surrounding whitespace is kept; "phone " and "phone" are different headers.
func Key(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.Map(func(r rune) rune {
		if r == '\uFEFF' || (unicode.IsControl(r) && r != '\t') {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// Keys applies Key to every element, returning a new slice.
func Keys(raw []string) []string {
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = Key(s)
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i]
		}
		runes++
	}
	return s
}
