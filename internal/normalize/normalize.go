// Package normalize folds text for keyword comparison: lower case with
// combining diacritical marks removed, so "Venta De Boletos" and
// "venta de boletós" compare equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lower-cases s, decomposes it (NFD) and drops every nonspacing mark.
// It is total and idempotent.
func Text(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		// transform.String only fails on malformed transformer chains; keep
		// the lower-cased input rather than losing the text.
		return strings.ToLower(s)
	}
	return out
}

// Keywords normalizes each keyword, trimming surrounding space and dropping
// entries that end up empty. Order is preserved.
func Keywords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		n := strings.TrimSpace(Text(w))
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FirstMatch reports the first keyword (already normalized) contained in
// the normalized text.
func FirstMatch(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}
