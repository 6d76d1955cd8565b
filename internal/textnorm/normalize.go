package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips diacritics, lowercases and collapses whitespace.
// "  Ñuñoa   Alto " -> "nunoa alto"
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// transform.Chain keeps state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Equal reports whether a and b are the same after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// HasPrefix reports whether the normalized s starts with the normalized prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(Normalize(s), Normalize(prefix))
}

// Contains reports whether the normalized s contains the normalized substr.
func Contains(s, substr string) bool {
	return strings.Contains(Normalize(s), Normalize(substr))
}
