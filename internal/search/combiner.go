package search

import "github.com/utafrali/catalog-search/internal/domain"

// Signal weights. Full-text rank dominates, name trigrams boost recall for
// typos, description trigrams are the weakest signal.
const (
	FullTextWeight  = 0.7
	FuzzyNameWeight = 0.3
	FuzzyDescWeight = 0.2
)

// Inclusion thresholds. A row is kept when any full-text rank exceeds
// FullTextThreshold, any name similarity exceeds FuzzyNameThreshold, or a
// name contains the query literally.
const (
	FullTextThreshold  = 0.1
	FuzzyNameThreshold = 0.2
)

// Score combines the signals of one row into its relevance and reports
// whether the row belongs in the result set at all. The substring
// predicates only affect inclusion.
func Score(s domain.Signals) (relevance float64, include bool) {
	relevance = (s.FullTextEn+s.FullTextAr)*FullTextWeight +
		(s.FuzzyNameEn+s.FuzzyNameAr)*FuzzyNameWeight +
		(s.FuzzyDescEn+s.FuzzyDescAr)*FuzzyDescWeight

	include = s.FullTextEn > FullTextThreshold ||
		s.FullTextAr > FullTextThreshold ||
		s.FuzzyNameEn > FuzzyNameThreshold ||
		s.FuzzyNameAr > FuzzyNameThreshold ||
		s.SubstringEn ||
		s.SubstringAr

	return relevance, include
}
