package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/cache"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/slug"
)

// CatalogEvents publishes catalog changes. Publishing is best effort.
type CatalogEvents interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, id int64) error
	PublishBrandDeleted(ctx context.Context, id int64) error
	PublishCategoryDeleted(ctx context.Context, id int64) error
}

// CatalogService implements the catalog write path and lookups.
type CatalogService struct {
	products          repository.ProductRepository
	brands            repository.BrandRepository
	categories        repository.CategoryRepository
	events            CatalogEvents
	cache             cache.ResultCache
	invalidateOnWrite bool
	logger            *slog.Logger
}

// CatalogConfig wires a CatalogService.
type CatalogConfig struct {
	Products   repository.ProductRepository
	Brands     repository.BrandRepository
	Categories repository.CategoryRepository
	Events     CatalogEvents // required; event.Nop when Kafka is off
	Cache      cache.ResultCache
	// InvalidateOnWrite purges the search cache after every write. When
	// false, cached pages stay until their TTL runs out.
	InvalidateOnWrite bool
	Logger            *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(cfg CatalogConfig) *CatalogService {
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	return &CatalogService{
		products:          cfg.Products,
		brands:            cfg.Brands,
		categories:        cfg.Categories,
		events:            cfg.Events,
		cache:             cfg.Cache,
		invalidateOnWrite: cfg.InvalidateOnWrite,
		logger:            cfg.Logger,
	}
}

// CreateProduct stores a new product. Its search vectors are written in
// the same transaction, so it is searchable as soon as this returns.
func (s *CatalogService) CreateProduct(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	product := domain.NewProduct(in)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.afterWrite(ctx)
	if err := s.events.PublishProductCreated(ctx, product); err != nil {
		s.publishFailed(ctx, "product.created", err)
	}

	s.logger.InfoContext(ctx, "product created", slog.Int64("product_id", product.ID))

	return s.GetProduct(ctx, product.ID)
}

// GetProduct retrieves a product by ID with brand and category expanded.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// UpdateProduct applies a partial update.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in domain.UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	in.Apply(product)
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.afterWrite(ctx)
	if err := s.events.PublishProductUpdated(ctx, product); err != nil {
		s.publishFailed(ctx, "product.updated", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.Int64("product_id", id))

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.afterWrite(ctx)
	if err := s.events.PublishProductDeleted(ctx, id); err != nil {
		s.publishFailed(ctx, "product.deleted", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.Int64("product_id", id))
	return nil
}

// ListBrands returns every brand.
func (s *CatalogService) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	brands, err := s.brands.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// GetOrCreateBrand returns the brand with the input's slug, creating it if
// needed. An empty slug is derived from the English name.
func (s *CatalogService) GetOrCreateBrand(ctx context.Context, in domain.TaxonomyInput) (*domain.Brand, bool, error) {
	slugValue, err := resolveSlug(in)
	if err != nil {
		return nil, false, err
	}

	brand, created, err := s.brands.GetOrCreate(ctx, &domain.Brand{NameEn: in.NameEn, NameAr: in.NameAr, Slug: slugValue})
	if err != nil {
		return nil, false, fmt.Errorf("get or create brand: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "brand created", slog.Int64("brand_id", brand.ID), slog.String("slug", brand.Slug))
	}
	return brand, created, nil
}

// DeleteBrand removes a brand. Its products stay, without a brand.
func (s *CatalogService) DeleteBrand(ctx context.Context, id int64) error {
	if err := s.brands.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}

	s.afterWrite(ctx)
	if err := s.events.PublishBrandDeleted(ctx, id); err != nil {
		s.publishFailed(ctx, "brand.deleted", err)
	}

	s.logger.InfoContext(ctx, "brand deleted", slog.Int64("brand_id", id))
	return nil
}

// ListCategories returns every category.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetOrCreateCategory returns the category with the input's slug, creating
// it if needed.
func (s *CatalogService) GetOrCreateCategory(ctx context.Context, in domain.TaxonomyInput) (*domain.Category, bool, error) {
	slugValue, err := resolveSlug(in)
	if err != nil {
		return nil, false, err
	}

	category, created, err := s.categories.GetOrCreate(ctx, &domain.Category{NameEn: in.NameEn, NameAr: in.NameAr, Slug: slugValue})
	if err != nil {
		return nil, false, fmt.Errorf("get or create category: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "category created", slog.Int64("category_id", category.ID), slog.String("slug", category.Slug))
	}
	return category, created, nil
}

// DeleteCategory removes a category. Its products stay, uncategorized.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.afterWrite(ctx)
	if err := s.events.PublishCategoryDeleted(ctx, id); err != nil {
		s.publishFailed(ctx, "category.deleted", err)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.Int64("category_id", id))
	return nil
}

func resolveSlug(in domain.TaxonomyInput) (string, error) {
	if in.Slug != "" {
		return in.Slug, nil
	}
	generated := slug.Generate(in.NameEn)
	if generated == "" {
		return "", apperrors.InvalidInput("slug is required when name_en has no latin letters or digits")
	}
	return generated, nil
}

// afterWrite applies the cache policy. A failed purge is logged; the write
// itself has already succeeded.
func (s *CatalogService) afterWrite(ctx context.Context) {
	if !s.invalidateOnWrite {
		return
	}
	if err := s.cache.Purge(ctx); err != nil {
		s.logger.WarnContext(ctx, "search cache purge after write failed",
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publishFailed(ctx context.Context, eventType string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.String("error", err.Error()),
	)
}
