package postgres

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/search"
	"github.com/utafrali/catalog-search/pkg/database"
)

// SearchRepository computes relevance signals with the full-text and
// pg_trgm functions of PostgreSQL.
type SearchRepository struct {
	db database.DBTX
}

// NewSearchRepository creates a new PostgreSQL-backed candidate store.
func NewSearchRepository(db database.DBTX) *SearchRepository {
	return &SearchRepository{db: db}
}

// Parameters $1..$4 are fixed; structural predicates are numbered from 5.
const scoreCandidatesSQL = `
	WITH q AS (SELECT plainto_tsquery('simple', $1) AS tsq)
	SELECT id, ft_en, ft_ar, fz_name_en, fz_name_ar, fz_desc_en, fz_desc_ar, sub_en, sub_ar
	FROM (
		SELECT p.id,
		       LEAST(ts_rank(coalesce(p.search_vector_en, ''::tsvector), q.tsq), 1)::float8 AS ft_en,
		       LEAST(ts_rank(coalesce(p.search_vector_ar, ''::tsvector), q.tsq), 1)::float8 AS ft_ar,
		       similarity(p.name_en, $1)::float8 AS fz_name_en,
		       similarity(p.name_ar, $1)::float8 AS fz_name_ar,
		       similarity(p.description_en, $1)::float8 AS fz_desc_en,
		       similarity(p.description_ar, $1)::float8 AS fz_desc_ar,
		       EXISTS (SELECT 1 FROM unnest($2::text[]) AS t(term)
		               WHERE strpos(lower(unaccent(p.name_en)), lower(unaccent(t.term))) > 0) AS sub_en,
		       EXISTS (SELECT 1 FROM unnest($2::text[]) AS t(term)
		               WHERE strpos(lower(unaccent(p.name_ar)), lower(unaccent(t.term))) > 0) AS sub_ar
		FROM products p, q
		%s
	) s
	WHERE ft_en > $3 OR ft_ar > $3 OR fz_name_en > $4 OR fz_name_ar > $4 OR sub_en OR sub_ar`

// ScoreCandidates returns the signals of every product passing filter
// that can also pass the inclusion rule. Ordering is left to the caller.
func (r *SearchRepository) ScoreCandidates(ctx context.Context, filter repository.StructuralFilter, query search.Query) (candidates []domain.Candidate, err error) {
	where, args := structuralWhere(filter, 5)
	sql := fmt.Sprintf(scoreCandidatesSQL, where)
	args = append([]any{query.Text, query.SubstringTerms(), search.FullTextThreshold, search.FuzzyNameThreshold}, args...)

	ctx, end := database.TraceQuery(ctx, "ScoreCandidates", sql,
		attribute.String("search.category", filter.CategorySlug),
		attribute.String("search.brand", filter.BrandSlug),
	)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	defer rows.Close()

	candidates = []domain.Candidate{}
	for rows.Next() {
		var c domain.Candidate
		s := &c.Signals
		if err := rows.Scan(
			&c.ProductID,
			&s.FullTextEn,
			&s.FullTextAr,
			&s.FuzzyNameEn,
			&s.FuzzyNameAr,
			&s.FuzzyDescEn,
			&s.FuzzyDescAr,
			&s.SubstringEn,
			&s.SubstringAr,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}

// structuralWhere builds the WHERE clause for filter with placeholders
// starting at $first. An unknown slug matches no rows.
func structuralWhere(filter repository.StructuralFilter, first int) (string, []any) {
	var (
		conditions []string
		args       []any
		argIndex   = first
	)

	if filter.CategorySlug != "" {
		conditions = append(conditions, fmt.Sprintf("p.category_id = (SELECT id FROM categories WHERE slug = $%d)", argIndex))
		args = append(args, filter.CategorySlug)
		argIndex++
	}

	if filter.BrandSlug != "" {
		conditions = append(conditions, fmt.Sprintf("p.brand_id = (SELECT id FROM brands WHERE slug = $%d)", argIndex))
		args = append(args, filter.BrandSlug)
		argIndex++
	}

	if filter.MinCalories != nil {
		conditions = append(conditions, fmt.Sprintf("p.calories >= $%d", argIndex))
		args = append(args, *filter.MinCalories)
		argIndex++
	}

	if filter.MaxCalories != nil {
		conditions = append(conditions, fmt.Sprintf("p.calories <= $%d", argIndex))
		args = append(args, *filter.MaxCalories)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
