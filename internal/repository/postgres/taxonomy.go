package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/catalog-search/pkg/database"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// taxonomyRow is a row of the brands or categories table; both share one
// shape.
type taxonomyRow struct {
	ID        int64
	NameEn    string
	NameAr    string
	Slug      string
	CreatedAt time.Time
}

type taxonomyTable struct {
	db       database.DBTX
	table    string
	resource string
}

// getOrCreate inserts row unless its slug exists, then returns the stored
// row. Concurrent callers with the same slug converge on one row.
func (t taxonomyTable) getOrCreate(ctx context.Context, row taxonomyRow) (taxonomyRow, bool, error) {
	insert := fmt.Sprintf(`
		INSERT INTO %s (name_en, name_ar, slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id, name_en, name_ar, slug, created_at`, t.table)

	var out taxonomyRow
	err := t.db.QueryRow(ctx, insert, row.NameEn, row.NameAr, row.Slug).
		Scan(&out.ID, &out.NameEn, &out.NameAr, &out.Slug, &out.CreatedAt)
	switch {
	case err == nil:
		return out, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return taxonomyRow{}, false, fmt.Errorf("insert %s: %w", t.resource, err)
	}

	out, err = t.getBySlug(ctx, row.Slug)
	if err != nil {
		return taxonomyRow{}, false, err
	}
	return out, false, nil
}

func (t taxonomyTable) getBySlug(ctx context.Context, slug string) (taxonomyRow, error) {
	query := fmt.Sprintf(`SELECT id, name_en, name_ar, slug, created_at FROM %s WHERE slug = $1`, t.table)

	var out taxonomyRow
	err := t.db.QueryRow(ctx, query, slug).Scan(&out.ID, &out.NameEn, &out.NameAr, &out.Slug, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return taxonomyRow{}, apperrors.NotFound(t.resource, slug)
		}
		return taxonomyRow{}, fmt.Errorf("get %s by slug: %w", t.resource, err)
	}
	return out, nil
}

func (t taxonomyTable) list(ctx context.Context) ([]taxonomyRow, error) {
	query := fmt.Sprintf(`SELECT id, name_en, name_ar, slug, created_at FROM %s ORDER BY name_en`, t.table)

	rows, err := t.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []taxonomyRow
	for rows.Next() {
		var r taxonomyRow
		if err := rows.Scan(&r.ID, &r.NameEn, &r.NameAr, &r.Slug, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", t.resource, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", t.resource, err)
	}
	return out, nil
}

// delete removes the row. The foreign keys on products are ON DELETE SET
// NULL, so referencing products survive unlinked.
func (t taxonomyTable) delete(ctx context.Context, id int64) error {
	ct, err := t.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.resource, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(t.resource, strconv.FormatInt(id, 10))
	}
	return nil
}
