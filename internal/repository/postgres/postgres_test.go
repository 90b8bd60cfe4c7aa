package postgres

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/repository"
	"github.com/utafrali/catalog-search/internal/search"
	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// ─── helpers ────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string       { return &s }
func int64Ptr(n int64) *int64       { return &n }
func float64Ptr(f float64) *float64 { return &f }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var productColumns = []string{
	"id", "name_en", "name_ar", "description_en", "description_ar", "barcode",
	"brand_id", "category_id", "calories", "protein", "carbs", "fat",
	"created_at", "updated_at",
	"b_id", "b_name_en", "b_name_ar", "b_slug", "b_created_at",
	"c_id", "c_name_en", "c_name_ar", "c_slug", "c_created_at",
}

func productRow(id int64, brand *domain.Brand) []any {
	row := []any{
		id, "Milk", "حليب", "Fresh milk", "حليب طازج", strPtr("6291041500213"),
		(*int64)(nil), int64Ptr(2), float64Ptr(42), float64Ptr(3.4), (*float64)(nil), (*float64)(nil),
		now, now,
	}
	if brand != nil {
		row[6] = int64Ptr(brand.ID)
		row = append(row, int64Ptr(brand.ID), strPtr(brand.NameEn), strPtr(brand.NameAr), strPtr(brand.Slug), &brand.CreatedAt)
	} else {
		row = append(row, (*int64)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*time.Time)(nil))
	}
	return append(row, int64Ptr(2), strPtr("Dairy"), strPtr("ألبان"), strPtr("dairy"), &now)
}

var taxonomyColumns = []string{"id", "name_en", "name_ar", "slug", "created_at"}

// ─── migrations ─────────────────────────────────────────────────────────────

func TestMigrations_Embedded(t *testing.T) {
	content, err := fs.ReadFile(Migrations(), "001_catalog.up.sql")
	require.NoError(t, err)

	sql := string(content)
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS pg_trgm")
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS unaccent")
	assert.Contains(t, sql, "CONSTRAINT "+barcodeConstraint)
	assert.Equal(t, 2, strings.Count(sql, "ON DELETE SET NULL"))
}

// ─── products ───────────────────────────────────────────────────────────────

func TestProductRepository_Create_RefreshesVectorsInTx(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	p := domain.NewProduct(domain.CreateProductInput{NameEn: "Milk", NameAr: "حليب", Barcode: strPtr("123")})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`UPDATE products SET\s+search_vector_en = setweight`).
		WithArgs([]int64{7}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_DuplicateBarcode(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	p := domain.NewProduct(domain.CreateProductInput{NameEn: "Milk", NameAr: "حليب", Barcode: strPtr("123")})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: barcodeConstraint})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UnknownBrand(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	p := domain.NewProduct(domain.CreateProductInput{NameEn: "Milk", NameAr: "حليب", BrandID: int64Ptr(99)})

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO products").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), p)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	brand := &domain.Brand{ID: 4, NameEn: "Almarai", NameAr: "المراعي", Slug: "almarai", CreatedAt: now}
	mock.ExpectQuery(`FROM products p\s+LEFT JOIN brands b`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(productRow(1, brand)...))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.NameEn)
	require.NotNil(t, p.Brand)
	assert.Equal(t, "almarai", p.Brand.Slug)
	require.NotNil(t, p.Category)
	assert.Equal(t, "dairy", p.Category.Slug)
	assert.Nil(t, p.Carbs)
	assert.InDelta(t, 42, *p.Calories, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NullBrand(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`FROM products p`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(productRow(1, nil)...))

	p, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, p.BrandID)
	assert.Nil(t, p.Brand)
	assert.NotNil(t, p.Category)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`FROM products p`).WithArgs(int64(404)).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductRepository_GetByIDs(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`WHERE p.id = ANY\(\$1\)`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow(2, nil)...).
			AddRow(productRow(1, nil)...))

	products, err := repo.GetByIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	products, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	p := &domain.Product{ID: 3, NameEn: "Milk", NameAr: "حليب"}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products\s+SET name_en`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`search_vector_en = setweight`).
		WithArgs([]int64{3}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products\s+SET name_en`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &domain.Product{ID: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM products").WithArgs(int64(6)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.True(t, errors.Is(repo.Delete(context.Background(), 6), apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_BulkCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	products := []domain.Product{
		{NameEn: "Milk", NameAr: "حليب"},
		{NameEn: "Bread", NameAr: "خبز"},
	}

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"products"}, bulkColumns).WillReturnResult(2)
	mock.ExpectExec(`WHERE search_vector_en IS NULL OR search_vector_ar IS NULL`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	n, err := repo.BulkCreate(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ExistingBarcodes(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT barcode FROM products").
		WithArgs([]string{"1", "2"}).
		WillReturnRows(pgxmock.NewRows([]string{"barcode"}).AddRow("2"))

	taken, err := repo.ExistingBarcodes(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"2": {}}, taken)
}

// ─── brands & categories ────────────────────────────────────────────────────

func TestBrandRepository_GetOrCreate_Inserts(t *testing.T) {
	mock := newMock(t)
	repo := NewBrandRepository(mock)

	mock.ExpectQuery(`(?s)INSERT INTO brands .*ON CONFLICT \(slug\) DO NOTHING`).
		WithArgs("Almarai", "المراعي", "almarai").
		WillReturnRows(pgxmock.NewRows(taxonomyColumns).AddRow(int64(1), "Almarai", "المراعي", "almarai", now))

	b, created, err := repo.GetOrCreate(context.Background(), &domain.Brand{NameEn: "Almarai", NameAr: "المراعي", Slug: "almarai"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), b.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBrandRepository_GetOrCreate_Existing(t *testing.T) {
	mock := newMock(t)
	repo := NewBrandRepository(mock)

	mock.ExpectQuery(`INSERT INTO brands`).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, name_en, name_ar, slug, created_at FROM brands WHERE slug`).
		WithArgs("almarai").
		WillReturnRows(pgxmock.NewRows(taxonomyColumns).AddRow(int64(1), "Almarai", "المراعي", "almarai", now))

	b, created, err := repo.GetOrCreate(context.Background(), &domain.Brand{NameEn: "Other", NameAr: "آخر", Slug: "almarai"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Almarai", b.NameEn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetBySlug_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery(`FROM categories WHERE slug`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCategoryRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery(`FROM categories ORDER BY name_en`).
		WillReturnRows(pgxmock.NewRows(taxonomyColumns).
			AddRow(int64(1), "Bakery", "مخبوزات", "bakery", now).
			AddRow(int64(2), "Dairy", "ألبان", "dairy", now))

	categories, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "dairy", categories[1].Slug)
}

func TestBrandRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewBrandRepository(mock)

	mock.ExpectExec(`DELETE FROM brands WHERE id`).WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM brands WHERE id`).WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.True(t, errors.Is(repo.Delete(context.Background(), 2), apperrors.ErrNotFound))
}

// ─── search ─────────────────────────────────────────────────────────────────

var candidateColumns = []string{"id", "ft_en", "ft_ar", "fz_name_en", "fz_name_ar", "fz_desc_en", "fz_desc_ar", "sub_en", "sub_ar"}

func TestSearchRepository_ScoreCandidates(t *testing.T) {
	mock := newMock(t)
	repo := NewSearchRepository(mock)

	q, ok := search.Normalize("Milk")
	require.True(t, ok)

	filter := repository.StructuralFilter{CategorySlug: "dairy", MinCalories: float64Ptr(10)}

	mock.ExpectQuery(`(?s)plainto_tsquery\('simple', \$1\).*WHERE p.category_id = \(SELECT id FROM categories WHERE slug = \$5\) AND p.calories >= \$6`).
		WithArgs("milk", []string{"milk"}, search.FullTextThreshold, search.FuzzyNameThreshold, "dairy", 10.0).
		WillReturnRows(pgxmock.NewRows(candidateColumns).
			AddRow(int64(1), 0.6079, 0.0, 1.0, 0.0, 0.2, 0.0, true, false))

	candidates, err := repo.ScoreCandidates(context.Background(), filter, q)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(1), candidates[0].ProductID)
	assert.True(t, candidates[0].Signals.SubstringEn)
	assert.InDelta(t, 1.0, candidates[0].Signals.FuzzyNameEn, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchRepository_ScoreCandidates_StoreDown(t *testing.T) {
	mock := newMock(t)
	repo := NewSearchRepository(mock)

	q, _ := search.Normalize("milk")
	mock.ExpectQuery(`plainto_tsquery`).WillReturnError(errors.New("connection refused"))

	_, err := repo.ScoreCandidates(context.Background(), repository.StructuralFilter{}, q)
	require.Error(t, err)
	assert.True(t, database.IsConnectionError(err))
}

func TestStructuralWhere(t *testing.T) {
	where, args := structuralWhere(repository.StructuralFilter{}, 5)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = structuralWhere(repository.StructuralFilter{
		CategorySlug: "dairy",
		BrandSlug:    "almarai",
		MinCalories:  float64Ptr(10),
		MaxCalories:  float64Ptr(200),
	}, 5)
	assert.Equal(t, "WHERE p.category_id = (SELECT id FROM categories WHERE slug = $5) AND "+
		"p.brand_id = (SELECT id FROM brands WHERE slug = $6) AND "+
		"p.calories >= $7 AND p.calories <= $8", where)
	assert.Equal(t, []any{"dairy", "almarai", 10.0, 200.0}, args)
}
