package repos

import (
	"context"
	"strings"
	"time"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AssignmentRepo struct{ db sqlx.ExtContext }

func NewAssignmentRepo(db sqlx.ExtContext) *AssignmentRepo { return &AssignmentRepo{db: db} }

type assignmentRow struct {
	ID           string  `db:"id"`
	AssetID      string  `db:"asset_id"`
	UserID       string  `db:"user_id"`
	AssignedAt   string  `db:"assigned_at"`
	DueAt        *string `db:"due_at"`
	ReturnedAt   *string `db:"returned_at"`
	ConditionOut *string `db:"condition_out"`
	ConditionIn  *string `db:"condition_in"`
	Notes        *string `db:"notes"`
}

func (r assignmentRow) toDomain() (domain.Assignment, error) {
	a := domain.Assignment{
		ID: r.ID, AssetID: r.AssetID, UserID: r.UserID,
		ConditionOut: r.ConditionOut, ConditionIn: r.ConditionIn, Notes: r.Notes,
	}
	var err error
	if a.AssignedAt, err = parseTime(r.AssignedAt); err != nil {
		return domain.Assignment{}, err
	}
	if a.DueAt, err = parseTimePtr(r.DueAt); err != nil {
		return domain.Assignment{}, err
	}
	if a.ReturnedAt, err = parseTimePtr(r.ReturnedAt); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

const assignmentCols = `id, asset_id, user_id, assigned_at, due_at, returned_at, condition_out, condition_in, notes`

// AssignmentFilter narrows List. Zero values mean "any"; Returned nil lists
// both outstanding and returned rows.
type AssignmentFilter struct {
	UserID   string
	AssetID  string
	Returned *bool
	Limit    int
	Offset   int
}

func (f AssignmentFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.AssetID != "" {
		conds = append(conds, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.Returned != nil {
		if *f.Returned {
			conds = append(conds, "returned_at IS NOT NULL")
		} else {
			conds = append(conds, "returned_at IS NULL")
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Insert checks an asset out. A second outstanding row for the same asset
// hits ux_assignments_outstanding and yields ErrUniqueViolation.
func (r *AssignmentRepo) Insert(ctx context.Context, a domain.Assignment) error {
	var due *string
	if a.DueAt != nil {
		s := formatTime(*a.DueAt)
		due = &s
	}
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO assignments(id, asset_id, user_id, assigned_at, due_at, condition_out, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.AssetID, a.UserID, formatTime(a.AssignedAt), due, a.ConditionOut, a.Notes)
	return uniqueErr(err)
}

// ByID returns sql.ErrNoRows when the assignment does not exist.
func (r *AssignmentRepo) ByID(ctx context.Context, id string) (domain.Assignment, error) {
	var row assignmentRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id); err != nil {
		return domain.Assignment{}, err
	}
	return row.toDomain()
}

// OutstandingFor returns the asset's open checkout, or sql.ErrNoRows.
func (r *AssignmentRepo) OutstandingFor(ctx context.Context, assetID string) (domain.Assignment, error) {
	var row assignmentRow
	if err := sqlx.GetContext(ctx, r.db, &row,
		`SELECT `+assignmentCols+` FROM assignments WHERE asset_id = ? AND returned_at IS NULL`, assetID); err != nil {
		return domain.Assignment{}, err
	}
	return row.toDomain()
}

// MarkReturned closes an outstanding assignment in one conditional UPDATE.
// A nil notes keeps the checkout notes. It returns false when the row is
// missing or already returned.
func (r *AssignmentRepo) MarkReturned(ctx context.Context, id string, conditionIn, notes *string, now time.Time) (bool, error) {
	res, err := execWithRetry(ctx, r.db, `
		UPDATE assignments
		SET returned_at = ?, condition_in = ?, notes = COALESCE(?, notes)
		WHERE id = ? AND returned_at IS NULL
	`, formatTime(now), conditionIn, notes, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// List returns one page, newest checkout first, plus the unpaged total.
func (r *AssignmentRepo) List(ctx context.Context, f AssignmentFilter) ([]domain.Assignment, int, error) {
	where, args := f.where()
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM assignments`+where, args...); err != nil {
		return nil, 0, err
	}
	var rows []assignmentRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT `+assignmentCols+` FROM assignments`+where+` ORDER BY assigned_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := assignmentsFrom(rows)
	return out, total, err
}

// Overdue lists outstanding assignments due before now, earliest due first.
func (r *AssignmentRepo) Overdue(ctx context.Context, now time.Time) ([]domain.Assignment, error) {
	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT `+assignmentCols+` FROM assignments
		WHERE returned_at IS NULL AND due_at IS NOT NULL AND due_at < ?
		ORDER BY due_at, rowid
	`, formatTime(now)); err != nil {
		return nil, err
	}
	return assignmentsFrom(rows)
}

// Counts returns outstanding and overdue totals in one statement.
func (r *AssignmentRepo) Counts(ctx context.Context, now time.Time) (outstanding, overdue int, err error) {
	var row struct {
		Outstanding int `db:"outstanding"`
		Overdue     int `db:"overdue"`
	}
	err = sqlx.GetContext(ctx, r.db, &row, `
		SELECT COUNT(*) AS outstanding,
		       COALESCE(SUM(CASE WHEN due_at IS NOT NULL AND due_at < ? THEN 1 ELSE 0 END), 0) AS overdue
		FROM assignments WHERE returned_at IS NULL
	`, formatTime(now))
	return row.Outstanding, row.Overdue, err
}

func assignmentsFrom(rows []assignmentRow) ([]domain.Assignment, error) {
	out := make([]domain.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
