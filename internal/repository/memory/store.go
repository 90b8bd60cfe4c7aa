// Package memory is an in-process catalog store. It keeps the same
// semantics as the PostgreSQL store (unique barcodes and slugs, SET NULL on
// brand and category deletion, vectors refreshed with every write) and
// computes search signals with internal/textsearch. It backs local
// development and tests.
package memory

import (
	"sort"
	"sync"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/textsearch"
)

type productEntry struct {
	product  domain.Product
	vectorEn textsearch.Vector
	vectorAr textsearch.Vector
}

// Store holds the whole catalog behind one RWMutex. A write holds the lock
// across the row and its vectors, so readers never see one without the
// other.
type Store struct {
	mu         sync.RWMutex
	products   map[int64]*productEntry
	brands     map[int64]domain.Brand
	categories map[int64]domain.Category

	nextProductID  int64
	nextBrandID    int64
	nextCategoryID int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		products:   make(map[int64]*productEntry),
		brands:     make(map[int64]domain.Brand),
		categories: make(map[int64]domain.Category),
	}
}

// Products returns the product repository view of the store.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Brands returns the brand repository view of the store.
func (s *Store) Brands() *BrandRepository { return &BrandRepository{s: s} }

// Categories returns the category repository view of the store.
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }

// SearchVectors builds the English and Arabic vectors of p: name weight A,
// description weight B.
func SearchVectors(p *domain.Product) (en, ar textsearch.Vector) {
	en = textsearch.BuildVector(
		textsearch.Field{Text: p.NameEn, Weight: textsearch.WeightA},
		textsearch.Field{Text: p.DescriptionEn, Weight: textsearch.WeightB},
	)
	ar = textsearch.BuildVector(
		textsearch.Field{Text: p.NameAr, Weight: textsearch.WeightA},
		textsearch.Field{Text: p.DescriptionAr, Weight: textsearch.WeightB},
	)
	return en, ar
}

// sortedProductIDs must be called with s.mu held.
func (s *Store) sortedProductIDs() []int64 {
	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// expand returns a copy of p with brand and category attached. Must be
// called with s.mu held.
func (s *Store) expand(p domain.Product) domain.Product {
	p.Brand, p.Category = nil, nil
	if p.BrandID != nil {
		if b, ok := s.brands[*p.BrandID]; ok {
			p.Brand = &b
		}
	}
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return p
}
