package repository

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/search"
)

// StructuralFilter holds the exact and range predicates applied before any
// relevance scoring. Empty slugs and nil bounds are not applied.
type StructuralFilter struct {
	CategorySlug string
	BrandSlug    string
	MinCalories  *float64
	MaxCalories  *float64
}

// ProductRepository defines product persistence. Every write that touches
// names or descriptions recomputes the product's search vectors in the same
// transaction.
type ProductRepository interface {
	// Create inserts a product and assigns its ID and timestamps.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID returns a product with its brand and category expanded.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByIDs returns the products with the given IDs, brand and category
	// expanded. Missing IDs are skipped; order is unspecified.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)

	// Update persists every mutable field of product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product.
	Delete(ctx context.Context, id int64) error

	// BulkCreate inserts products in one transaction and returns the number
	// inserted.
	BulkCreate(ctx context.Context, products []domain.Product) (int, error)

	// ExistingBarcodes returns which of the given barcodes are already taken.
	ExistingBarcodes(ctx context.Context, barcodes []string) (map[string]struct{}, error)
}

// BrandRepository defines brand persistence.
type BrandRepository interface {
	// GetOrCreate returns the brand with brand.Slug, inserting brand when
	// none exists. created reports whether an insert happened.
	GetOrCreate(ctx context.Context, brand *domain.Brand) (result *domain.Brand, created bool, err error)
	GetBySlug(ctx context.Context, slug string) (*domain.Brand, error)
	List(ctx context.Context) ([]domain.Brand, error)
	// Delete removes a brand; products referencing it keep existing with
	// no brand.
	Delete(ctx context.Context, id int64) error
}

// CategoryRepository defines category persistence, with the same semantics
// as BrandRepository.
type CategoryRepository interface {
	GetOrCreate(ctx context.Context, category *domain.Category) (result *domain.Category, created bool, err error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

// CandidateStore computes relevance signals inside the store.
type CandidateStore interface {
	// ScoreCandidates returns the signals of every product that passes
	// filter. Implementations may drop rows that cannot pass the inclusion
	// rule of search.Score, but must not drop any row that can.
	ScoreCandidates(ctx context.Context, filter StructuralFilter, query search.Query) ([]domain.Candidate, error)
}
