package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	s *Store
}

// Create stores p and assigns its ID and timestamps.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkProduct(p, 0); err != nil {
		return err
	}

	s.nextProductID++
	now := time.Now().UTC()
	p.ID = s.nextProductID
	p.CreatedAt, p.UpdatedAt = now, now
	s.putProduct(*p)
	return nil
}

// GetByID returns a product with brand and category expanded.
func (r *ProductRepository) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	p := s.expand(e.product)
	return &p, nil
}

// GetByIDs returns the products that exist among ids, in ids order.
func (r *ProductRepository) GetByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.products[id]; ok {
			out = append(out, s.expand(e.product))
		}
	}
	return out, nil
}

// Update replaces the stored product and recomputes its vectors.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
	}
	if err := s.checkProduct(p, p.ID); err != nil {
		return err
	}

	p.CreatedAt = existing.product.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.putProduct(*p)
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	delete(s.products, id)
	return nil
}

// BulkCreate stores all products or none.
func (r *ProductRepository) BulkCreate(_ context.Context, products []domain.Product) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		if err := s.checkProduct(p, 0); err != nil {
			return 0, err
		}
		if p.Barcode != nil {
			if _, dup := batch[*p.Barcode]; dup {
				return 0, apperrors.Conflict("a barcode in the batch is already taken")
			}
			batch[*p.Barcode] = struct{}{}
		}
	}

	now := time.Now().UTC()
	for _, p := range products {
		s.nextProductID++
		p.ID = s.nextProductID
		p.CreatedAt, p.UpdatedAt = now, now
		s.putProduct(p)
	}
	return len(products), nil
}

// ExistingBarcodes returns the subset of barcodes already stored.
func (r *ProductRepository) ExistingBarcodes(_ context.Context, barcodes []string) (map[string]struct{}, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(barcodes))
	for _, b := range barcodes {
		want[b] = struct{}{}
	}

	taken := make(map[string]struct{})
	for _, e := range s.products {
		if e.product.Barcode == nil {
			continue
		}
		if _, ok := want[*e.product.Barcode]; ok {
			taken[*e.product.Barcode] = struct{}{}
		}
	}
	return taken, nil
}

// checkProduct enforces barcode uniqueness and foreign keys. self is the ID
// being updated, or 0 on insert. Must be called with s.mu held.
func (s *Store) checkProduct(p *domain.Product, self int64) error {
	if p.Barcode != nil {
		for id, e := range s.products {
			if id != self && e.product.Barcode != nil && *e.product.Barcode == *p.Barcode {
				return apperrors.AlreadyExists("product", "barcode", *p.Barcode)
			}
		}
	}
	if p.BrandID != nil {
		if _, ok := s.brands[*p.BrandID]; !ok {
			return apperrors.InvalidInput("brand_id or category_id does not exist")
		}
	}
	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return apperrors.InvalidInput("brand_id or category_id does not exist")
		}
	}
	return nil
}

// putProduct stores p with freshly computed vectors. Must be called with
// s.mu held for writing.
func (s *Store) putProduct(p domain.Product) {
	p.Brand, p.Category = nil, nil
	en, ar := SearchVectors(&p)
	s.products[p.ID] = &productEntry{product: p, vectorEn: en, vectorAr: ar}
}
