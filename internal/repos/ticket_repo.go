package repos

import (
	"context"
	"strings"
	"time"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type TicketRepo struct{ db sqlx.ExtContext }

func NewTicketRepo(db sqlx.ExtContext) *TicketRepo { return &TicketRepo{db: db} }

type ticketRow struct {
	ID          string  `db:"id"`
	AssetID     string  `db:"asset_id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	Status      string  `db:"status"`
	OpenedAt    string  `db:"opened_at"`
	ClosedAt    *string `db:"closed_at"`
	CostCents   int64   `db:"cost_cents"`
	Notes       *string `db:"notes"`
}

func (r ticketRow) toDomain() (domain.Ticket, error) {
	t := domain.Ticket{
		ID: r.ID, AssetID: r.AssetID, Title: r.Title, Description: r.Description,
		Status: domain.TicketStatus(r.Status), CostCents: r.CostCents, Notes: r.Notes,
	}
	var err error
	if t.OpenedAt, err = parseTime(r.OpenedAt); err != nil {
		return domain.Ticket{}, err
	}
	if t.ClosedAt, err = parseTimePtr(r.ClosedAt); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

const ticketCols = `id, asset_id, title, description, status, opened_at, closed_at, cost_cents, notes`

type TicketFilter struct {
	AssetID string
	Status  domain.TicketStatus
	Limit   int
	Offset  int
}

func (r *TicketRepo) Insert(ctx context.Context, t domain.Ticket) error {
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO maintenance_tickets(id, asset_id, title, description, status, opened_at, cost_cents, notes)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.AssetID, t.Title, t.Description, string(t.Status), formatTime(t.OpenedAt), t.CostCents, t.Notes)
	return uniqueErr(err)
}

// ByID returns sql.ErrNoRows when the ticket does not exist.
func (r *TicketRepo) ByID(ctx context.Context, id string) (domain.Ticket, error) {
	var row ticketRow
	if err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+ticketCols+` FROM maintenance_tickets WHERE id = ?`, id); err != nil {
		return domain.Ticket{}, err
	}
	return row.toDomain()
}

// Update writes every mutable column of t. closed_at is only ever set once:
// an existing stamp survives later status changes.
func (r *TicketRepo) Update(ctx context.Context, t domain.Ticket) error {
	var closed *string
	if t.ClosedAt != nil {
		s := formatTime(*t.ClosedAt)
		closed = &s
	}
	_, err := execWithRetry(ctx, r.db, `
		UPDATE maintenance_tickets
		SET title = ?, description = ?, status = ?, cost_cents = ?, notes = ?,
		    closed_at = COALESCE(closed_at, ?)
		WHERE id = ?
	`, t.Title, t.Description, string(t.Status), t.CostCents, t.Notes, closed, t.ID)
	return err
}

// List returns one page, newest first, plus the unpaged total.
func (r *TicketRepo) List(ctx context.Context, f TicketFilter) ([]domain.Ticket, int, error) {
	var conds []string
	var args []any
	if f.AssetID != "" {
		conds = append(conds, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM maintenance_tickets`+where, args...); err != nil {
		return nil, 0, err
	}
	var rows []ticketRow
	err := sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT `+ticketCols+` FROM maintenance_tickets`+where+` ORDER BY opened_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, nil
}

// TopAssets ranks assets by ticket count; ties go to the lower asset code.
func (r *TicketRepo) TopAssets(ctx context.Context, limit int) ([]domain.AssetTicketCount, error) {
	out := []domain.AssetTicketCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
		SELECT t.asset_id, a.code AS asset_code, a.name AS asset_name, COUNT(*) AS n
		FROM maintenance_tickets t JOIN assets a ON a.id = t.asset_id
		GROUP BY t.asset_id, a.code, a.name
		ORDER BY n DESC, a.code
		LIMIT ?
	`, limit)
	return out, err
}

// CostBetween sums cost_cents for tickets opened within [from, to].
func (r *TicketRepo) CostBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total, `
		SELECT COALESCE(SUM(cost_cents), 0) FROM maintenance_tickets
		WHERE opened_at >= ? AND opened_at <= ?
	`, formatTime(from), formatTime(to))
	return total, err
}

// Month aggregates tickets opened within [from, to).
func (r *TicketRepo) Month(ctx context.Context, from, to time.Time) (open, done int, cost int64, err error) {
	var row struct {
		Open int   `db:"open"`
		Done int   `db:"done"`
		Cost int64 `db:"cost"`
	}
	err = sqlx.GetContext(ctx, r.db, &row, `
		SELECT COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0) AS open,
		       COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0) AS done,
		       COALESCE(SUM(cost_cents), 0) AS cost
		FROM maintenance_tickets
		WHERE opened_at >= ? AND opened_at < ?
	`, formatTime(from), formatTime(to))
	return row.Open, row.Done, row.Cost, err
}

// OpenCount counts tickets not yet done or canceled.
func (r *TicketRepo) OpenCount(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n,
		`SELECT COUNT(*) FROM maintenance_tickets WHERE status IN ('open', 'in_progress')`)
	return n, err
}
