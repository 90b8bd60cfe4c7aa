package textsearch

// Trigrams returns the pg_trgm trigram set of s: each word is lowercased,
// padded with two leading blanks and one trailing blank, and cut into
// overlapping three-rune windows.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range words(s) {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Similarity is pg_trgm similarity(a, b): shared trigrams over the union.
// It is 0 when either side has no trigrams.
func Similarity(a, b string) float64 {
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	common := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			common++
		}
	}
	return float64(common) / float64(len(ta)+len(tb)-common)
}
