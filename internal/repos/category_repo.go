package repos

import (
	"context"
	"time"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type CategoryRepo struct{ db sqlx.ExtContext }

func NewCategoryRepo(db sqlx.ExtContext) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryCols = `
    id,
    name,
    description,
    COALESCE(created_at,'') AS created_at,
    COALESCE(updated_at,'') AS updated_at`

func (r *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
  SELECT`+categoryCols+`
  FROM categories
  ORDER BY name
`)
	return out, err
}

// ByID returns sql.ErrNoRows when the category does not exist.
func (r *CategoryRepo) ByID(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := sqlx.GetContext(ctx, r.db, &c, `SELECT`+categoryCols+` FROM categories WHERE id = ?`, id)
	return c, err
}

// Exists reports whether a category id is known; used before linking assets.
func (r *CategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM categories WHERE id = ?`, id)
	return n > 0, err
}

// Create inserts c; a duplicate id or name (any case) yields ErrUniqueViolation.
func (r *CategoryRepo) Create(ctx context.Context, c domain.Category, now time.Time) error {
	ts := formatTime(now)
	_, err := execWithRetry(ctx, r.db,
		`INSERT INTO categories(id, name, description, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, ts, ts)
	return uniqueErr(err)
}

func (r *CategoryRepo) Update(ctx context.Context, c domain.Category, now time.Time) error {
	_, err := execWithRetry(ctx, r.db,
		`UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, formatTime(now), c.ID)
	return uniqueErr(err)
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	_, err := execWithRetry(ctx, r.db, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// AssetCount counts assets filed under the category.
func (r *CategoryRepo) AssetCount(ctx context.Context, id string) (int, error) {
	return countOf(ctx, r.db, `SELECT COUNT(*) FROM assets WHERE category_id = ?`, id)
}
