package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

const barcodeConstraint = "products_barcode_key"

// Vector definitions. Names weigh A, descriptions B, both under the
// script-agnostic "simple" configuration.
const searchVectorAssignments = `
	search_vector_en = setweight(to_tsvector('simple', coalesce(name_en, '')), 'A') ||
	                   setweight(to_tsvector('simple', coalesce(description_en, '')), 'B'),
	search_vector_ar = setweight(to_tsvector('simple', coalesce(name_ar, '')), 'A') ||
	                   setweight(to_tsvector('simple', coalesce(description_ar, '')), 'B')`

const refreshSearchVectorsSQL = `UPDATE products SET` + searchVectorAssignments + ` WHERE id = ANY($1)`

// Rows written by COPY have no vectors yet; every other write path fills
// them in its own transaction.
const fillMissingSearchVectorsSQL = `UPDATE products SET` + searchVectorAssignments + `
	WHERE search_vector_en IS NULL OR search_vector_ar IS NULL`

const selectProduct = `
	SELECT p.id, p.name_en, p.name_ar, p.description_en, p.description_ar, p.barcode,
	       p.brand_id, p.category_id, p.calories, p.protein, p.carbs, p.fat,
	       p.created_at, p.updated_at,
	       b.id, b.name_en, b.name_ar, b.slug, b.created_at,
	       c.id, c.name_en, c.name_ar, c.slug, c.created_at
	FROM products p
	LEFT JOIN brands b ON b.id = p.brand_id
	LEFT JOIN categories c ON c.id = p.category_id`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// refreshSearchVectors recomputes the stored search vectors of ids from
// their current names and descriptions. Run it in the transaction that
// wrote those fields so no reader sees the new text with old vectors.
func refreshSearchVectors(ctx context.Context, db execer, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := db.Exec(ctx, refreshSearchVectorsSQL, ids); err != nil {
		return fmt.Errorf("refresh search vectors: %w", err)
	}
	return nil
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product and its search vectors atomically.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateProduct", "INSERT INTO products")
	defer func() { end(err) }()

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `
		INSERT INTO products (name_en, name_ar, description_en, description_ar, barcode,
		                      brand_id, category_id, calories, protein, carbs, fat, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			p.NameEn,
			p.NameAr,
			p.DescriptionEn,
			p.DescriptionAr,
			p.Barcode,
			p.BrandID,
			p.CategoryID,
			p.Calories,
			p.Protein,
			p.Carbs,
			p.Fat,
			p.CreatedAt,
			p.UpdatedAt,
		).Scan(&p.ID)
		if err != nil {
			return writeError(err, p, "insert product")
		}
		return refreshSearchVectors(ctx, tx, p.ID)
	})
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs retrieves the products with the given IDs in one round trip.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) (products []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := selectProduct + ` WHERE p.id = ANY($1)`
	ctx, end := database.TraceQuery(ctx, "GetProductsByIDs", query, attribute.Int("db.ids", len(ids)))
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Update modifies an existing product and refreshes its search vectors.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateProduct", "UPDATE products")
	defer func() { end(err) }()

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name_en = $1, name_ar = $2, description_en = $3, description_ar = $4, barcode = $5,
		    brand_id = $6, category_id = $7, calories = $8, protein = $9, carbs = $10, fat = $11,
		    updated_at = $12
		WHERE id = $13`

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, query,
			p.NameEn,
			p.NameAr,
			p.DescriptionEn,
			p.DescriptionAr,
			p.Barcode,
			p.BrandID,
			p.CategoryID,
			p.Calories,
			p.Protein,
			p.Carbs,
			p.Fat,
			p.UpdatedAt,
			p.ID,
		)
		if err != nil {
			return writeError(err, p, "update product")
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
		}
		return refreshSearchVectors(ctx, tx, p.ID)
	})
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return nil
}

var bulkColumns = []string{
	"name_en", "name_ar", "description_en", "description_ar", "barcode",
	"brand_id", "category_id", "calories", "protein", "carbs", "fat",
	"created_at", "updated_at",
}

// BulkCreate copies products into the table and computes their vectors in
// the same transaction. Product IDs are not written back.
func (r *ProductRepository) BulkCreate(ctx context.Context, products []domain.Product) (n int, err error) {
	if len(products) == 0 {
		return 0, nil
	}

	ctx, end := database.TraceQuery(ctx, "BulkCreateProducts", "COPY products", attribute.Int("db.rows", len(products)))
	defer func() { end(err) }()

	now := time.Now().UTC()
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{
			p.NameEn, p.NameAr, p.DescriptionEn, p.DescriptionAr, p.Barcode,
			p.BrandID, p.CategoryID, p.Calories, p.Protein, p.Carbs, p.Fat,
			now, now,
		}
	}

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{"products"}, bulkColumns, pgx.CopyFromRows(rows))
		if err != nil {
			if database.IsUniqueViolation(err, barcodeConstraint) {
				return apperrors.Conflict("a barcode in the batch is already taken")
			}
			return fmt.Errorf("copy products: %w", err)
		}
		n = int(copied)

		if _, err := tx.Exec(ctx, fillMissingSearchVectorsSQL); err != nil {
			return fmt.Errorf("refresh search vectors: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ExistingBarcodes returns the subset of barcodes already stored.
func (r *ProductRepository) ExistingBarcodes(ctx context.Context, barcodes []string) (map[string]struct{}, error) {
	taken := make(map[string]struct{})
	if len(barcodes) == 0 {
		return taken, nil
	}

	rows, err := r.db.Query(ctx, `SELECT barcode FROM products WHERE barcode = ANY($1)`, barcodes)
	if err != nil {
		return nil, fmt.Errorf("query barcodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan barcode: %w", err)
		}
		taken[code] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate barcodes: %w", err)
	}
	return taken, nil
}

func writeError(err error, p *domain.Product, action string) error {
	switch {
	case database.IsUniqueViolation(err, barcodeConstraint):
		barcode := ""
		if p.Barcode != nil {
			barcode = *p.Barcode
		}
		return apperrors.AlreadyExists("product", "barcode", barcode)
	case database.IsForeignKeyViolation(err):
		return apperrors.InvalidInput("brand_id or category_id does not exist")
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// nullableTaxonomy receives the LEFT JOINed brand or category columns.
type nullableTaxonomy struct {
	ID        *int64
	NameEn    *string
	NameAr    *string
	Slug      *string
	CreatedAt *time.Time
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (n nullableTaxonomy) brand() *domain.Brand {
	if n.ID == nil {
		return nil
	}
	return &domain.Brand{ID: *n.ID, NameEn: deref(n.NameEn), NameAr: deref(n.NameAr), Slug: deref(n.Slug), CreatedAt: deref(n.CreatedAt)}
}

func (n nullableTaxonomy) category() *domain.Category {
	if n.ID == nil {
		return nil
	}
	return &domain.Category{ID: *n.ID, NameEn: deref(n.NameEn), NameAr: deref(n.NameAr), Slug: deref(n.Slug), CreatedAt: deref(n.CreatedAt)}
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p    domain.Product
		b, c nullableTaxonomy
	)

	if err := row.Scan(
		&p.ID,
		&p.NameEn,
		&p.NameAr,
		&p.DescriptionEn,
		&p.DescriptionAr,
		&p.Barcode,
		&p.BrandID,
		&p.CategoryID,
		&p.Calories,
		&p.Protein,
		&p.Carbs,
		&p.Fat,
		&p.CreatedAt,
		&p.UpdatedAt,
		&b.ID, &b.NameEn, &b.NameAr, &b.Slug, &b.CreatedAt,
		&c.ID, &c.NameEn, &c.NameAr, &c.Slug, &c.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Brand = b.brand()
	p.Category = c.category()
	return &p, nil
}
