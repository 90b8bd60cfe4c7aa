// Package search holds the relevance policy of the catalog search: query
// normalization and the combination of per-field signals into a single
// ordering.
package search

import (
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the shortest query, in runes after trimming, that is
// searched at all.
const MinQueryLength = 2

// Query is a normalized search query.
type Query struct {
	// Text is the lowercased query with runs of whitespace collapsed.
	Text string
	// Terms are the whitespace-delimited words of Text.
	Terms []string
}

// Normalize lowercases raw, trims it and collapses inner whitespace. It
// reports false when fewer than MinQueryLength runes remain, which callers
// treat as an empty result rather than an error. Scripts without case, like Arabic, pass through unchanged.
func Normalize(raw string) (Query, bool) {
	terms := strings.Fields(strings.ToLower(raw))
	text := strings.Join(terms, " ")
	if utf8.RuneCountInString(text) < MinQueryLength {
		return Query{}, false
	}
	return Query{Text: text, Terms: terms}, true
}

// SubstringTerms are the literals checked against product names by the
// substring fallback. Single-rune words are skipped since they would match
// almost every name; if nothing is left the whole query is used.
func (q Query) SubstringTerms() []string {
	out := make([]string, 0, len(q.Terms))
	for _, t := range q.Terms {
		if utf8.RuneCountInString(t) >= MinQueryLength {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{q.Text}
	}
	return out
}
