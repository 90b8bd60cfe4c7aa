package memory

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/search"
	"github.com/utafrali/catalog-search/internal/textsearch"
)

// ScoreCandidates computes signals for every product passing filter, in
// ascending ID order, and keeps those that pass the inclusion rule.
func (s *Store) ScoreCandidates(ctx context.Context, filter repository.StructuralFilter, query search.Query) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var categoryID, brandID *int64
	if filter.CategorySlug != "" {
		c, ok := s.categoryBySlug(filter.CategorySlug)
		if !ok {
			return []domain.Candidate{}, nil
		}
		categoryID = &c.ID
	}
	if filter.BrandSlug != "" {
		b, ok := s.brandBySlug(filter.BrandSlug)
		if !ok {
			return []domain.Candidate{}, nil
		}
		brandID = &b.ID
	}

	tsq := textsearch.ParseQuery(query.Text)
	terms := query.SubstringTerms()

	out := []domain.Candidate{}
	for _, id := range s.sortedProductIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e := s.products[id]
		p := &e.product
		if !matchesStructural(p, categoryID, brandID, filter) {
			continue
		}

		signals := domain.Signals{
			FullTextEn:  textsearch.Rank(e.vectorEn, tsq),
			FullTextAr:  textsearch.Rank(e.vectorAr, tsq),
			FuzzyNameEn: textsearch.Similarity(p.NameEn, query.Text),
			FuzzyNameAr: textsearch.Similarity(p.NameAr, query.Text),
			FuzzyDescEn: textsearch.Similarity(p.DescriptionEn, query.Text),
			FuzzyDescAr: textsearch.Similarity(p.DescriptionAr, query.Text),
			SubstringEn: textsearch.ContainsAny(p.NameEn, terms),
			SubstringAr: textsearch.ContainsAny(p.NameAr, terms),
		}
		if _, include := search.Score(signals); !include {
			continue
		}
		out = append(out, domain.Candidate{ProductID: id, Signals: signals})
	}
	return out, nil
}

// matchesStructural applies the filter the way SQL does: a NULL column
// never satisfies an equality or range predicate.
func matchesStructural(p *domain.Product, categoryID, brandID *int64, f repository.StructuralFilter) bool {
	if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
		return false
	}
	if brandID != nil && (p.BrandID == nil || *p.BrandID != *brandID) {
		return false
	}
	if f.MinCalories != nil && (p.Calories == nil || *p.Calories < *f.MinCalories) {
		return false
	}
	if f.MaxCalories != nil && (p.Calories == nil || *p.Calories > *f.MaxCalories) {
		return false
	}
	return true
}
