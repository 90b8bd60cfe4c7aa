package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/cache"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/repository/memory"
	"github.com/utafrali/catalog-search/internal/search"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// --- Mocks ---

type mockCandidateStore struct {
	mock.Mock
}

func (m *mockCandidateStore) ScoreCandidates(ctx context.Context, filter repository.StructuralFilter, query search.Query) ([]domain.Candidate, error) {
	args := m.Called(ctx, filter, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candidate), args.Error(1)
}

type mockProductLoader struct {
	mock.Mock
}

func (m *mockProductLoader) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type brokenCache struct{ cache.Nop }

func (brokenCache) Get(context.Context, string) (*domain.SearchPage, bool, error) {
	return nil, false, errors.New("dial tcp: connection refused")
}

func (brokenCache) Put(context.Context, string, *domain.SearchPage, time.Duration) error {
	return errors.New("dial tcp: connection refused")
}

// --- Helpers ---

type fixture struct {
	store *memory.Store
	cache *cache.MemoryCache
	svc   *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	c := cache.NewMemoryCache(0)
	return &fixture{
		store: store,
		cache: c,
		svc:   NewSearchService(store, store.Products(), c, time.Minute, logger.Discard()),
	}
}

func (f *fixture) add(t *testing.T, p domain.Product) int64 {
	t.Helper()
	require.NoError(t, f.store.Products().Create(context.Background(), &p))
	return p.ID
}

func float64Ptr(v float64) *float64 { return &v }

func resultIDs(page *domain.SearchPage) []int64 {
	ids := make([]int64, len(page.Results))
	for i, r := range page.Results {
		ids[i] = r.ID
	}
	return ids
}

// --- Tests ---

func TestSearch_ShortQueryIsEmpty(t *testing.T) {
	store := &mockCandidateStore{}
	loader := &mockProductLoader{}
	svc := NewSearchService(store, loader, brokenCache{}, 0, logger.Discard())

	for _, q := range []string{"", " ", "a", "  a  ", "ح"} {
		page, err := svc.Search(context.Background(), &domain.SearchRequest{Query: q, Category: "dairy", Page: 3})
		require.NoError(t, err)
		assert.Zero(t, page.Count)
		assert.Empty(t, page.Results)
		assert.NotNil(t, page.Results)
	}

	store.AssertNotCalled(t, "ScoreCandidates", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_RanksExactNameFirst(t *testing.T) {
	f := newFixture(t)
	shake := f.add(t, domain.Product{NameEn: "Chocolate Shake", NameAr: "مخفوق", DescriptionEn: "shake made with milk"})
	milk := f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})
	f.add(t, domain.Product{NameEn: "Bread", NameAr: "خبز"})

	page, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "MILK"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, []int64{milk, shake}, resultIDs(page))
	assert.Greater(t, page.Results[0].Relevance, page.Results[1].Relevance)
}

func TestSearch_Typo(t *testing.T) {
	f := newFixture(t)
	milk := f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})

	page, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "mlk"})
	require.NoError(t, err)
	assert.Equal(t, []int64{milk}, resultIDs(page))
}

func TestSearch_PaginatesAfterOrdering(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.add(t, domain.Product{NameEn: fmt.Sprintf("Milk %02d", i), NameAr: "حليب"})
	}

	first, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", PageSize: 10})
	require.NoError(t, err)
	second, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", Page: 2, PageSize: 10})
	require.NoError(t, err)
	third, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", Page: 3, PageSize: 10})
	require.NoError(t, err)
	beyond, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", Page: 9, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 25, first.Count)
	assert.Len(t, first.Results, 10)
	assert.Len(t, second.Results, 10)
	assert.Len(t, third.Results, 5)
	assert.Empty(t, beyond.Results)
	assert.Equal(t, 25, beyond.Count)

	seen := map[int64]bool{}
	var all []domain.SearchResult
	for _, p := range []*domain.SearchPage{first, second, third} {
		for _, r := range p.Results {
			assert.False(t, seen[r.ID], "product %d on two pages", r.ID)
			seen[r.ID] = true
			all = append(all, r)
		}
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		ordered := prev.Relevance > cur.Relevance || (prev.Relevance == cur.Relevance && prev.ID < cur.ID)
		assert.True(t, ordered, "results %d and %d out of order", prev.ID, cur.ID)
	}
}

func TestSearch_DefaultsAndClampsPageSize(t *testing.T) {
	f := newFixture(t)
	f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})

	page, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
}

func TestSearch_StructuralFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dairy, _, err := f.store.Categories().GetOrCreate(ctx, &domain.Category{NameEn: "Dairy", NameAr: "ألبان", Slug: "dairy"})
	require.NoError(t, err)
	inDairy := f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب", CategoryID: &dairy.ID, Nutrition: domain.Nutrition{Calories: float64Ptr(60)}})
	f.add(t, domain.Product{NameEn: "Milk Chocolate", NameAr: "شوكولاتة", Nutrition: domain.Nutrition{Calories: float64Ptr(500)}})

	page, err := f.svc.Search(ctx, &domain.SearchRequest{Query: "milk", Category: "dairy"})
	require.NoError(t, err)
	assert.Equal(t, []int64{inDairy}, resultIDs(page))
	require.NotNil(t, page.Results[0].Category)
	assert.Equal(t, "dairy", page.Results[0].Category.Slug)

	page, err = f.svc.Search(ctx, &domain.SearchRequest{Query: "milk", MaxCalories: float64Ptr(100)})
	require.NoError(t, err)
	assert.Equal(t, []int64{inDairy}, resultIDs(page))

	page, err = f.svc.Search(ctx, &domain.SearchRequest{Query: "milk", Category: "unknown"})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
}

func TestSearch_CacheServesStalePageWithinTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})

	req := domain.SearchRequest{Query: "milk"}
	first, err := f.svc.Search(ctx, &req)
	require.NoError(t, err)

	p, err := f.store.Products().GetByID(ctx, id)
	require.NoError(t, err)
	p.NameEn = "Bread"
	require.NoError(t, f.store.Products().Update(ctx, p))
	f.add(t, domain.Product{NameEn: "Milk Powder", NameAr: "حليب بودرة"})

	second, err := f.svc.Search(ctx, &req)
	require.NoError(t, err)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))

	require.NoError(t, f.svc.PurgeCache(ctx))
	third, err := f.svc.Search(ctx, &req)
	require.NoError(t, err)
	require.Equal(t, 1, third.Count)
	assert.Equal(t, "Milk Powder", third.Results[0].NameEn)
}

func TestSearch_EquivalentRequestsShareCacheEntry(t *testing.T) {
	f := newFixture(t)
	f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})

	_, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "  Milk ", Category: ""})
	require.NoError(t, err)
	_, err = f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 1, f.cache.Len())
}

func TestSearch_CacheFailureFailsOpen(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Products().Create(context.Background(), &domain.Product{NameEn: "Milk", NameAr: "حليب"}))
	svc := NewSearchService(store, store.Products(), brokenCache{}, 0, logger.Discard())

	page, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
}

func TestSearch_StoreUnavailable(t *testing.T) {
	store := &mockCandidateStore{}
	store.On("ScoreCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("score candidates: dial tcp 10.0.0.1:5432: connection refused"))
	svc := NewSearchService(store, &mockProductLoader{}, cache.NewMemoryCache(0), 0, logger.Discard())

	_, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
}

func TestSearch_StoreErrorIsNotCached(t *testing.T) {
	store := &mockCandidateStore{}
	store.On("ScoreCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("syntax error")).Once()
	store.On("ScoreCandidates", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Candidate{}, nil).Once()
	c := cache.NewMemoryCache(0)
	svc := NewSearchService(store, &mockProductLoader{}, c, 0, logger.Discard())

	_, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Zero(t, c.Len())

	page, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.Equal(t, 1, c.Len())
	store.AssertExpectations(t)
}

func TestSearch_PassesFilterAndNormalizedQuery(t *testing.T) {
	store := &mockCandidateStore{}
	loader := &mockProductLoader{}

	wantFilter := repository.StructuralFilter{CategorySlug: "dairy", BrandSlug: "almarai", MinCalories: float64Ptr(1), MaxCalories: float64Ptr(2)}
	wantQuery := search.Query{Text: "fresh milk", Terms: []string{"fresh", "milk"}}
	store.On("ScoreCandidates", mock.Anything, wantFilter, wantQuery).Return([]domain.Candidate{
		{ProductID: 2, Signals: domain.Signals{FullTextEn: 0.5}},
		{ProductID: 1, Signals: domain.Signals{FullTextEn: 0.9}},
		{ProductID: 3, Signals: domain.Signals{FuzzyDescEn: 0.9}},
	}, nil)
	loader.On("GetByIDs", mock.Anything, []int64{1, 2}).Return([]domain.Product{
		{ID: 2, NameEn: "B"},
		{ID: 1, NameEn: "A"},
	}, nil)

	svc := NewSearchService(store, loader, nil, 0, logger.Discard())
	page, err := svc.Search(context.Background(), &domain.SearchRequest{
		Query: " Fresh Milk ", Category: "dairy", Brand: "almarai",
		MinCalories: float64Ptr(1), MaxCalories: float64Ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, []int64{1, 2}, resultIDs(page))
	assert.InDelta(t, 0.63, page.Results[0].Relevance, 1e-12)
	store.AssertExpectations(t)
	loader.AssertExpectations(t)
}

type blockingStore struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingStore) ScoreCandidates(context.Context, repository.StructuralFilter, search.Query) ([]domain.Candidate, error) {
	b.calls.Add(1)
	<-b.release
	return []domain.Candidate{}, nil
}

func TestSearch_ConcurrentMissesComputeOnce(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	svc := NewSearchService(store, &mockProductLoader{}, cache.NewMemoryCache(0), 0, logger.Discard())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Search(context.Background(), &domain.SearchRequest{Query: "milk"})
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, store.calls.Load(), int32(callers))
	assert.GreaterOrEqual(t, store.calls.Load(), int32(1))
}

type cancellableStore struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *cancellableStore) ScoreCandidates(ctx context.Context, _ repository.StructuralFilter, _ search.Query) ([]domain.Candidate, error) {
	c.calls.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.release:
		return []domain.Candidate{}, nil
	}
}

func TestSearch_CallerCancelDoesNotFailSharedWaiters(t *testing.T) {
	store := &cancellableStore{release: make(chan struct{})}
	svc := NewSearchService(store, &mockProductLoader{}, cache.NewMemoryCache(0), 0, logger.Discard())
	req := &domain.SearchRequest{Query: "milk"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Search(ctxA, req)
		errA <- err
	}()
	require.Eventually(t, func() bool { return store.calls.Load() == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), req)
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(store.release)
	require.NoError(t, <-errB)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestSearch_HugePageReturnsEmptyWindow(t *testing.T) {
	f := newFixture(t)
	f.add(t, domain.Product{NameEn: "Milk", NameAr: "حليب"})

	page, err := f.svc.Search(context.Background(), &domain.SearchRequest{Query: "milk", Page: 1 << 62})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	assert.Empty(t, page.Results)
}
