package search

import (
	"sort"

	"github.com/utafrali/catalog-search/internal/domain"
)

// Rank scores every candidate, drops excluded rows and duplicate IDs, and
// orders the rest by relevance descending, then product ID ascending. When
// a product appears more than once its first occurrence wins.
func Rank(candidates []domain.Candidate) []domain.Scored {
	seen := make(map[int64]struct{}, len(candidates))
	out := make([]domain.Scored, 0, len(candidates))

	for _, c := range candidates {
		if _, dup := seen[c.ProductID]; dup {
			continue
		}
		seen[c.ProductID] = struct{}{}

		relevance, include := Score(c.Signals)
		if !include {
			continue
		}
		out = append(out, domain.Scored{
			ProductID: c.ProductID,
			Relevance: relevance,
			Signals:   c.Signals,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
