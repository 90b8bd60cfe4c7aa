package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// BrandRepository implements repository.BrandRepository in memory.
type BrandRepository struct {
	s *Store
}

// GetOrCreate returns the brand with b.Slug, creating it from b if needed.
func (r *BrandRepository) GetOrCreate(_ context.Context, b *domain.Brand) (*domain.Brand, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.brandBySlug(b.Slug); ok {
		return &existing, false, nil
	}

	s.nextBrandID++
	out := domain.Brand{ID: s.nextBrandID, NameEn: b.NameEn, NameAr: b.NameAr, Slug: b.Slug, CreatedAt: time.Now().UTC()}
	s.brands[out.ID] = out
	return &out, true, nil
}

// GetBySlug retrieves a brand by its slug.
func (r *BrandRepository) GetBySlug(_ context.Context, slug string) (*domain.Brand, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.brandBySlug(slug); ok {
		return &b, nil
	}
	return nil, apperrors.NotFound("brand", slug)
}

// List returns all brands ordered by English name.
func (r *BrandRepository) List(_ context.Context) ([]domain.Brand, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Brand, 0, len(s.brands))
	for _, b := range s.brands {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameEn < out[j].NameEn })
	return out, nil
}

// Delete removes a brand and unlinks its products.
func (r *BrandRepository) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.brands[id]; !ok {
		return apperrors.NotFound("brand", strconv.FormatInt(id, 10))
	}
	delete(s.brands, id)
	for _, e := range s.products {
		if e.product.BrandID != nil && *e.product.BrandID == id {
			e.product.BrandID = nil
		}
	}
	return nil
}

// CategoryRepository implements repository.CategoryRepository in memory.
type CategoryRepository struct {
	s *Store
}

// GetOrCreate returns the category with c.Slug, creating it from c if
// needed.
func (r *CategoryRepository) GetOrCreate(_ context.Context, c *domain.Category) (*domain.Category, bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.categoryBySlug(c.Slug); ok {
		return &existing, false, nil
	}

	s.nextCategoryID++
	out := domain.Category{ID: s.nextCategoryID, NameEn: c.NameEn, NameAr: c.NameAr, Slug: c.Slug, CreatedAt: time.Now().UTC()}
	s.categories[out.ID] = out
	return &out, true, nil
}

// GetBySlug retrieves a category by its slug.
func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.categoryBySlug(slug); ok {
		return &c, nil
	}
	return nil, apperrors.NotFound("category", slug)
}

// List returns all categories ordered by English name.
func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NameEn < out[j].NameEn })
	return out, nil
}

// Delete removes a category and unlinks its products.
func (r *CategoryRepository) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return apperrors.NotFound("category", strconv.FormatInt(id, 10))
	}
	delete(s.categories, id)
	for _, e := range s.products {
		if e.product.CategoryID != nil && *e.product.CategoryID == id {
			e.product.CategoryID = nil
		}
	}
	return nil
}

func (s *Store) brandBySlug(slug string) (domain.Brand, bool) {
	for _, b := range s.brands {
		if b.Slug == slug {
			return b, true
		}
	}
	return domain.Brand{}, false
}

func (s *Store) categoryBySlug(slug string) (domain.Category, bool) {
	for _, c := range s.categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return domain.Category{}, false
}
