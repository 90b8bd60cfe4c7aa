package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a lowercase ASCII slug from a display name. Ampersands
// become "and" and accented Latin letters lose their marks; characters with
// no ASCII form (Arabic, for example) are dropped, so callers should slug
// the English name.
//
// Examples:
//   - "Canned Goods" → "canned-goods"
//   - "P&G" → "pandg"
//   - "Nestlé" → "nestle"
func Generate(name string) string {
	s := strings.ReplaceAll(strings.TrimSpace(name), "&", "and")

	folded, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
