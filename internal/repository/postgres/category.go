package postgres

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/database"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	t taxonomyTable
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{t: taxonomyTable{db: db, table: "categories", resource: "category"}}
}

// GetOrCreate returns the category with c.Slug, creating it from c if needed.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, c *domain.Category) (*domain.Category, bool, error) {
	row, created, err := r.t.getOrCreate(ctx, taxonomyRow{NameEn: c.NameEn, NameAr: c.NameAr, Slug: c.Slug})
	if err != nil {
		return nil, false, err
	}
	return toCategory(row), created, nil
}

// GetBySlug retrieves a category by its slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	row, err := r.t.getBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return toCategory(row), nil
}

// List returns all categories ordered by English name.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.t.list(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, *toCategory(row))
	}
	return categories, nil
}

// Delete removes a category; its products lose their category reference.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return r.t.delete(ctx, id)
}

func toCategory(row taxonomyRow) *domain.Category {
	return &domain.Category{ID: row.ID, NameEn: row.NameEn, NameAr: row.NameAr, Slug: row.Slug, CreatedAt: row.CreatedAt}
}
