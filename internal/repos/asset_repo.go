package repos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AssetRepo struct{ db sqlx.ExtContext }

func NewAssetRepo(db sqlx.ExtContext) *AssetRepo { return &AssetRepo{db: db} }

type assetRow struct {
	ID         string  `db:"id"`
	Code       string  `db:"code"`
	Name       string  `db:"name"`
	CategoryID *string `db:"category_id"`
	LocationID *string `db:"location_id"`
	Status     string  `db:"status"`
	SerialNo   *string `db:"serial_no"`
	Notes      *string `db:"notes"`
	CreatedAt  string  `db:"created_at"`
	UpdatedAt  string  `db:"updated_at"`
}

func (r assetRow) toDomain() (domain.Asset, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Asset{}, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return domain.Asset{}, err
	}
	return domain.Asset{
		ID: r.ID, Code: r.Code, Name: r.Name,
		CategoryID: r.CategoryID, LocationID: r.LocationID,
		Status: domain.AssetStatus(r.Status), SerialNo: r.SerialNo, Notes: r.Notes,
		CreatedAt: created, UpdatedAt: updated,
	}, nil
}

const assetCols = `id, code, name, category_id, location_id, status, serial_no, notes, created_at, updated_at`

func (r *AssetRepo) get(ctx context.Context, where string, arg any) (domain.Asset, error) {
	var row assetRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+assetCols+` FROM assets WHERE `+where, arg); err != nil {
		return domain.Asset{}, err
	}
	return row.toDomain()
}

// ByID and ByCode return sql.ErrNoRows when nothing matches.
func (r *AssetRepo) ByID(ctx context.Context, id string) (domain.Asset, error) {
	return r.get(ctx, `id = ?`, id)
}

func (r *AssetRepo) ByCode(ctx context.Context, code string) (domain.Asset, error) {
	return r.get(ctx, `code = ?`, code)
}

// ListByLocation returns every asset expected at locationID, ordered by code.
func (r *AssetRepo) ListByLocation(ctx context.Context, locationID string) ([]domain.Asset, error) {
	var rows []assetRow
	if err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT `+assetCols+` FROM assets WHERE location_id = ? ORDER BY code`, locationID); err != nil {
		return nil, err
	}
	return assetsFrom(rows)
}

func assetsFrom(rows []assetRow) ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// AssetFilter narrows Search. Q matches name, code or serial number,
// case-insensitively. OrderBy is "name" or "createdAt" (default).
type AssetFilter struct {
	Q          string
	CategoryID string
	LocationID string
	Status     domain.AssetStatus
	OrderBy    string
	Limit      int
	Offset     int
}

// Search returns one page of assets plus the unpaged total.
func (r *AssetRepo) Search(ctx context.Context, f AssetFilter) ([]domain.Asset, int, error) {
	where := `1 = 1`
	args := []any{}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		where += ` AND (LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(COALESCE(serial_no, '')) LIKE ?)`
		args = append(args, like, like, like)
	}
	if f.CategoryID != "" {
		where += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.LocationID != "" {
		where += ` AND location_id = ?`
		args = append(args, f.LocationID)
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	order := `created_at DESC, rowid DESC`
	if f.OrderBy == "name" {
		order = `name, code`
	}

	total, err := countOf(ctx, r.db, `SELECT COUNT(*) FROM assets WHERE `+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var rows []assetRow
	if err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT `+assetCols+` FROM assets WHERE `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, err
	}
	out, err := assetsFrom(rows)
	return out, total, err
}

// Create inserts a; a duplicate id or code yields ErrUniqueViolation.
func (r *AssetRepo) Create(ctx context.Context, a domain.Asset) error {
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO assets(id, code, name, category_id, location_id, status, serial_no, notes, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Code, a.Name, a.CategoryID, a.LocationID, string(a.Status), a.SerialNo, a.Notes,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return uniqueErr(err)
}

// Move changes the expected location (nil clears it).
func (r *AssetRepo) Move(ctx context.Context, id string, locationID *string, now time.Time) error {
	res, err := execWithRetry(ctx, r.db,
		`UPDATE assets SET location_id = ?, updated_at = ? WHERE id = ?`, locationID, formatTime(now), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("move asset %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Update rewrites every mutable column of a; a code clash yields ErrUniqueViolation.
func (r *AssetRepo) Update(ctx context.Context, a domain.Asset) error {
	_, err := execWithRetry(ctx, r.db, `
		UPDATE assets
		SET code = ?, name = ?, category_id = ?, location_id = ?, status = ?, serial_no = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, a.Code, a.Name, a.CategoryID, a.LocationID, string(a.Status), a.SerialNo, a.Notes,
		formatTime(a.UpdatedAt), a.ID)
	return uniqueErr(err)
}

// Delete removes the asset; its tickets and returned assignments cascade.
func (r *AssetRepo) Delete(ctx context.Context, id string) error {
	_, err := execWithRetry(ctx, r.db, `DELETE FROM assets WHERE id = ?`, id)
	return err
}

// AuditRefs counts audit items recorded against the asset.
func (r *AssetRepo) AuditRefs(ctx context.Context, id string) (int, error) {
	return countOf(ctx, r.db, `SELECT COUNT(*) FROM audit_items WHERE asset_id = ?`, id)
}

// CountBy groups assets on one of status, category_id or location_id.
func (r *AssetRepo) CountBy(ctx context.Context, column string) ([]domain.GroupCount, error) {
	switch column {
	case "status", "category_id", "location_id":
	default:
		return nil, fmt.Errorf("count assets by %q: unsupported column", column)
	}
	out := []domain.GroupCount{}
	err := sqlx.SelectContext(ctx, r.db, &out,
		`SELECT `+column+` AS k, COUNT(*) AS n FROM assets GROUP BY `+column+` ORDER BY n DESC, k`)
	return out, err
}
