package repos

import (
	"context"
	"fmt"
	"time"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AuditRepo struct{ db sqlx.ExtContext }

func NewAuditRepo(db sqlx.ExtContext) *AuditRepo { return &AuditRepo{db: db} }

type auditRow struct {
	ID          string  `db:"id"`
	LocationID  *string `db:"location_id"`
	Title       string  `db:"title"`
	Status      string  `db:"status"`
	StartedAt   *string `db:"started_at"`
	FinalizedAt *string `db:"finalized_at"`
	Notes       *string `db:"notes"`
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
}

func (r auditRow) toDomain() (domain.Audit, error) {
	a := domain.Audit{
		ID: r.ID, LocationID: r.LocationID, Title: r.Title,
		Status: domain.AuditStatus(r.Status), Notes: r.Notes,
	}
	var err error
	if a.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return domain.Audit{}, err
	}
	if a.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return domain.Audit{}, err
	}
	if a.StartedAt, err = parseTimePtr(r.StartedAt); err != nil {
		return domain.Audit{}, err
	}
	if a.FinalizedAt, err = parseTimePtr(r.FinalizedAt); err != nil {
		return domain.Audit{}, err
	}
	return a, nil
}

const auditCols = `id, location_id, title, status, started_at, finalized_at, notes, created_at, updated_at`

// Insert stores a new audit; a duplicate id yields ErrUniqueViolation.
func (r *AuditRepo) Insert(ctx context.Context, a domain.Audit) error {
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO audits(id, location_id, title, status, started_at, finalized_at, notes, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.LocationID, a.Title, string(a.Status), nil, nil, a.Notes,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	return uniqueErr(err)
}

// ByID returns sql.ErrNoRows when the audit does not exist.
func (r *AuditRepo) ByID(ctx context.Context, id string) (domain.Audit, error) {
	var row auditRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+auditCols+` FROM audits WHERE id = ?`, id); err != nil {
		return domain.Audit{}, err
	}
	return row.toDomain()
}

func (r *AuditRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM audits WHERE id = ?`, id)
	return n > 0, err
}

// List returns audits oldest first; an empty status means all.
func (r *AuditRepo) List(ctx context.Context, status domain.AuditStatus) ([]domain.Audit, error) {
	query := `SELECT ` + auditCols + ` FROM audits`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, rowid`

	var rows []auditRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Audit, 0, len(rows))
	for _, row := range rows {
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Transition moves an audit from one status to the next in a single
// conditional UPDATE and stamps the matching timestamp column. It returns
// false when no row had the expected prior status.
func (r *AuditRepo) Transition(ctx context.Context, id string, from, to domain.AuditStatus, now time.Time) (bool, error) {
	var stamp string
	switch to {
	case domain.AuditInProgress:
		stamp = "started_at"
	case domain.AuditFinalized:
		stamp = "finalized_at"
	default:
		return false, fmt.Errorf("no transition into %q", to)
	}
	ts := formatTime(now)
	res, err := execWithRetry(ctx, r.db,
		`UPDATE audits SET status = ?, `+stamp+` = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), ts, ts, id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountByStatus returns the number of audits per status.
func (r *AuditRepo) CountByStatus(ctx context.Context) ([]domain.GroupCount, error) {
	out := []domain.GroupCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT status AS k, COUNT(*) AS n FROM audits GROUP BY status ORDER BY status`)
	return out, err
}
