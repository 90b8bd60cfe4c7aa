package postgres

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/database"
)

// BrandRepository implements repository.BrandRepository using PostgreSQL.
type BrandRepository struct {
	t taxonomyTable
}

// NewBrandRepository creates a new PostgreSQL-backed brand repository.
func NewBrandRepository(db database.DBTX) *BrandRepository {
	return &BrandRepository{t: taxonomyTable{db: db, table: "brands", resource: "brand"}}
}

// GetOrCreate returns the brand with b.Slug, creating it from b if needed.
func (r *BrandRepository) GetOrCreate(ctx context.Context, b *domain.Brand) (*domain.Brand, bool, error) {
	row, created, err := r.t.getOrCreate(ctx, taxonomyRow{NameEn: b.NameEn, NameAr: b.NameAr, Slug: b.Slug})
	if err != nil {
		return nil, false, err
	}
	return toBrand(row), created, nil
}

// GetBySlug retrieves a brand by its slug.
func (r *BrandRepository) GetBySlug(ctx context.Context, slug string) (*domain.Brand, error) {
	row, err := r.t.getBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toBrand(row), nil
}

// List returns all brands ordered by English name.
func (r *BrandRepository) List(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.t.list(ctx)
	if err != nil {
		return nil, err
	}
	brands := make([]domain.Brand, 0, len(rows))
	for _, row := range rows {
		brands = append(brands, *toBrand(row))
	}
	return brands, nil
}

// Delete removes a brand; its products lose their brand reference.
func (r *BrandRepository) Delete(ctx context.Context, id int64) error {
	return r.t.delete(ctx, id)
}

func toBrand(row taxonomyRow) *domain.Brand {
	return &domain.Brand{ID: row.ID, NameEn: row.NameEn, NameAr: row.NameAr, Slug: row.Slug, CreatedAt: row.CreatedAt}
}
