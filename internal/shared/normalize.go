package shared

import (
	"strings"
	"unicode"
)

// NormalizeName canonicalizes an artist name or track title for equality
// checks across the two catalogs.
//
// Case-folds, trims, and collapses every run of non-letter/non-digit
// characters to a single space, so "Green Grass Of  Tunnel" and
// "green grass of tunnel" compare equal while "Múm" and "Mum Ra" do not.
// All matching policy lives behind this one function so it can be tuned
// without touching call sites.
func NormalizeName(name string) string {
	var out strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(out.String())
}

// NormalizeTrackKey builds a composite dedup key from a title and artist.
func NormalizeTrackKey(title, artist string) string {
	return NormalizeName(artist) + "|" + NormalizeName(title)
}

// SameName reports whether two names are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
