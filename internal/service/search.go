package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/utafrali/catalog-search/internal/cache"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/search"
	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

// sharedSearchTimeout bounds a computation shared by concurrent callers. It
// runs detached from any single caller so one disconnect does not fail the
// others.
const sharedSearchTimeout = 30 * time.Second

// ProductLoader hydrates ranked product IDs into full products.
type ProductLoader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
}

// SearchService runs product searches: filter and score in the store,
// combine and order here, paginate, hydrate, and memoize the page.
type SearchService struct {
	store    repository.CandidateStore
	products ProductLoader
	cache    cache.ResultCache
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

// NewSearchService creates a new search service. A nil cache disables
// caching; a non-positive ttl means cache.DefaultTTL.
func NewSearchService(store repository.CandidateStore, products ProductLoader, c cache.ResultCache, ttl time.Duration, logger *slog.Logger) *SearchService {
	if c == nil {
		c = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &SearchService{
		store:    store,
		products: products,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
	}
}

// Search returns one page of products matching req, most relevant first.
// A query shorter than search.MinQueryLength yields an empty page without
// touching the store or the cache.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchPage, error) {
	params := pagination.Params{Page: req.Page, PageSize: req.PageSize}.Normalize()

	query, ok := search.Normalize(req.Query)
	if !ok {
		return domain.EmptyPage(params.Page, params.PageSize), nil
	}

	normalized := *req
	normalized.Query = query.Text
	normalized.Page = params.Page
	normalized.PageSize = params.PageSize
	key := cache.Key(&normalized)

	if page, hit := s.cacheGet(ctx, key); hit {
		return page, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedSearchTimeout)
		defer cancel()

		page, err := s.compute(detached, query, &normalized, params)
		if err != nil {
			return nil, err
		}
		s.cachePut(detached, key, page)
		return page, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	page := res.Val.(*domain.SearchPage)
	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", query.Text),
		slog.Int("count", page.Count),
		slog.Int("page", page.Page),
		slog.Bool("shared", res.Shared),
	)
	return page, nil
}

// PurgeCache drops every cached page.
func (s *SearchService) PurgeCache(ctx context.Context) error {
	if err := s.cache.Purge(ctx); err != nil {
		return apperrors.Unavailable("search cache", err)
	}
	s.logger.InfoContext(ctx, "search cache purged")
	return nil
}

func (s *SearchService) compute(ctx context.Context, query search.Query, req *domain.SearchRequest, params pagination.Params) (*domain.SearchPage, error) {
	filter := repository.StructuralFilter{
		CategorySlug: req.Category,
		BrandSlug:    req.Brand,
		MinCalories:  req.MinCalories,
		MaxCalories:  req.MaxCalories,
	}

	candidates, err := s.store.ScoreCandidates(ctx, filter, query)
	if err != nil {
		return nil, storeError("score candidates", err)
	}

	ranked := search.Rank(candidates)
	start, end := params.Window(len(ranked))
	window := ranked[start:end]

	page := &domain.SearchPage{
		Count:    len(ranked),
		Page:     params.Page,
		PageSize: params.PageSize,
		Results:  make([]domain.SearchResult, 0, len(window)),
	}
	if len(window) == 0 {
		return page, nil
	}

	ids := make([]int64, len(window))
	for i, r := range window {
		ids[i] = r.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeError("load products", err)
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	// A product deleted between scoring and loading is dropped from the
	// page; Count still reflects the scoring pass.
	for _, r := range window {
		p, ok := byID[r.ProductID]
		if !ok {
			continue
		}
		page.Results = append(page.Results, domain.SearchResult{Product: p, Relevance: r.Relevance})
	}

	return page, nil
}

func (s *SearchService) cacheGet(ctx context.Context, key string) (*domain.SearchPage, bool) {
	page, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "search cache read failed, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return page, ok
}

func (s *SearchService) cachePut(ctx context.Context, key string, page *domain.SearchPage) {
	if err := s.cache.Put(ctx, key, page, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "search cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// storeError maps a store failure to a 503 when the store is unreachable.
// Cancellation by the caller passes through untouched.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case database.IsConnectionError(err):
		return apperrors.Unavailable("catalog store", err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
