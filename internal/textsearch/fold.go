// Package textsearch reproduces, in process, the PostgreSQL text functions
// the catalog search relies on: the "simple" text search configuration,
// ts_rank, pg_trgm similarity and unaccent. The in-memory store uses it so
// that both stores rank identically for the same catalog.
package textsearch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks, the equivalent of
// lower(unaccent(s)). Arabic harakat are combining marks and are removed too.
func Fold(s string) string {
	// A chain keeps per-use state, so each call gets its own.
	unaccent := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(unaccent, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContainsAny reports whether the folded haystack contains any folded term.
func ContainsAny(haystack string, terms []string) bool {
	h := Fold(haystack)
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(h, Fold(t)) {
			return true
		}
	}
	return false
}

// words splits lowercased s into runs of letters and digits, the way the
// default text search parser and pg_trgm both delimit words.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}
