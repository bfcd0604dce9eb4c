package repos

import (
	"context"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type LocationRepo struct{ db sqlx.ExtContext }

func NewLocationRepo(db sqlx.ExtContext) *LocationRepo { return &LocationRepo{db: db} }

type locationRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	ParentID  *string `db:"parent_id"`
	Notes     *string `db:"notes"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt string  `db:"updated_at"`
}

func (r locationRow) toDomain() (domain.Location, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Location{}, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return domain.Location{}, err
	}
	return domain.Location{
		ID: r.ID, Name: r.Name, ParentID: r.ParentID, Notes: r.Notes,
		CreatedAt: created, UpdatedAt: updated,
	}, nil
}

const locationCols = `id, name, parent_id, notes, created_at, updated_at`

// ByID returns sql.ErrNoRows when the location does not exist.
func (r *LocationRepo) ByID(ctx context.Context, id string) (domain.Location, error) {
	var row locationRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+locationCols+` FROM locations WHERE id = ?`, id); err != nil {
		return domain.Location{}, err
	}
	return row.toDomain()
}

func (r *LocationRepo) Exists(ctx context.Context, id string) (bool, error) {
	n, err := countOf(ctx, r.db, `SELECT COUNT(*) FROM locations WHERE id = ?`, id)
	return n > 0, err
}

func (r *LocationRepo) List(ctx context.Context) ([]domain.Location, error) {
	var rows []locationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT `+locationCols+` FROM locations ORDER BY name`); err != nil {
		return nil, err
	}
	out := make([]domain.Location, 0, len(rows))
	for _, row := range rows {
		l, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Create inserts l; a duplicate id or name yields ErrUniqueViolation.
func (r *LocationRepo) Create(ctx context.Context, l domain.Location) error {
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO locations(id, name, parent_id, notes, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
	`, l.ID, l.Name, l.ParentID, l.Notes, formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	return uniqueErr(err)
}

// Update rewrites name, parent and notes; a name clash yields ErrUniqueViolation.
func (r *LocationRepo) Update(ctx context.Context, l domain.Location) error {
	_, err := execWithRetry(ctx, r.db,
		`UPDATE locations SET name = ?, parent_id = ?, notes = ?, updated_at = ? WHERE id = ?`,
		l.Name, l.ParentID, l.Notes, formatTime(l.UpdatedAt), l.ID)
	return uniqueErr(err)
}

func (r *LocationRepo) Delete(ctx context.Context, id string) error {
	_, err := execWithRetry(ctx, r.db, `DELETE FROM locations WHERE id = ?`, id)
	return err
}

// LocationUsage counts what still points at a location.
type LocationUsage struct {
	Assets     int `db:"assets"`
	Children   int `db:"children"`
	AuditScans int `db:"audit_scans"`
}

func (u LocationUsage) InUse() bool { return u.Assets+u.Children+u.AuditScans > 0 }

func (r *LocationRepo) Usage(ctx context.Context, id string) (LocationUsage, error) {
	var u LocationUsage
	err := sqlx.GetContext(ctx, r.db, &u, `
		SELECT
		  (SELECT COUNT(*) FROM assets WHERE location_id = ?) AS assets,
		  (SELECT COUNT(*) FROM locations WHERE parent_id = ?) AS children,
		  (SELECT COUNT(*) FROM audit_items WHERE found_location_id = ?) AS audit_scans
	`, id, id, id)
	return u, err
}
