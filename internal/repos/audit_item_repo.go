package repos

import (
	"context"

	"assettrack/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AuditItemRepo struct{ db sqlx.ExtContext }

func NewAuditItemRepo(db sqlx.ExtContext) *AuditItemRepo { return &AuditItemRepo{db: db} }

type auditItemRow struct {
	ID              string  `db:"id"`
	AuditID         string  `db:"audit_id"`
	AssetID         string  `db:"asset_id"`
	Found           bool    `db:"found"`
	FoundLocationID *string `db:"found_location_id"`
	Condition       *string `db:"condition"`
	Notes           *string `db:"notes"`
	ScannedAt       *string `db:"scanned_at"`
}

func (r auditItemRow) toDomain() (domain.AuditItem, error) {
	scanned, err := parseTimePtr(r.ScannedAt)
	if err != nil {
		return domain.AuditItem{}, err
	}
	return domain.AuditItem{
		ID: r.ID, AuditID: r.AuditID, AssetID: r.AssetID, Found: r.Found,
		FoundLocationID: r.FoundLocationID, Condition: r.Condition, Notes: r.Notes,
		ScannedAt: scanned,
	}, nil
}

const auditItemCols = `id, audit_id, asset_id, found, found_location_id, condition, notes, scanned_at`

// ByAuditAsset returns sql.ErrNoRows when the asset has no item under the audit.
func (r *AuditItemRepo) ByAuditAsset(ctx context.Context, auditID, assetID string) (domain.AuditItem, error) {
	var row auditItemRow
	if err := sqlx.GetContext(ctx, r.db, &row,
		`SELECT `+auditItemCols+` FROM audit_items WHERE audit_id = ? AND asset_id = ?`, auditID, assetID); err != nil {
		return domain.AuditItem{}, err
	}
	return row.toDomain()
}

// AssetIDs returns the set of assets already covered by the audit, any location.
func (r *AuditItemRepo) AssetIDs(ctx context.Context, auditID string) (map[string]struct{}, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.db, &ids, `SELECT asset_id FROM audit_items WHERE audit_id = ?`, auditID); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// InsertUnscanned adds a not-yet-found item. It reports false, without error,
// when the (audit, asset) pair already exists.
func (r *AuditItemRepo) InsertUnscanned(ctx context.Context, id, auditID, assetID string) (bool, error) {
	res, err := execWithRetry(ctx, r.db, `
		INSERT INTO audit_items(id, audit_id, asset_id, found)
		VALUES(?, ?, ?, 0)
		ON CONFLICT(audit_id, asset_id) DO NOTHING
	`, id, auditID, assetID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// UpsertScan marks the (audit, asset) item found at it.ScannedAt, creating it
// when missing. On an existing row a nil field keeps the stored value.
func (r *AuditItemRepo) UpsertScan(ctx context.Context, it domain.AuditItem) error {
	_, err := execWithRetry(ctx, r.db, `
		INSERT INTO audit_items(id, audit_id, asset_id, found, found_location_id, condition, notes, scanned_at)
		VALUES(?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(audit_id, asset_id) DO UPDATE SET
		  found = 1,
		  found_location_id = COALESCE(excluded.found_location_id, audit_items.found_location_id),
		  condition = COALESCE(excluded.condition, audit_items.condition),
		  notes = COALESCE(excluded.notes, audit_items.notes),
		  scanned_at = excluded.scanned_at
	`, it.ID, it.AuditID, it.AssetID, it.FoundLocationID, it.Condition, it.Notes, formatTime(*it.ScannedAt))
	return err
}

// Progress counts items and found items in one statement.
func (r *AuditItemRepo) Progress(ctx context.Context, auditID string) (total, found int, err error) {
	var row struct {
		Total int `db:"total"`
		Found int `db:"found"`
	}
	err = sqlx.GetContext(ctx, r.db, &row, `
		SELECT COUNT(*) AS total, COALESCE(SUM(found), 0) AS found
		FROM audit_items WHERE audit_id = ?
	`, auditID)
	return row.Total, row.Found, err
}

// Mismatches lists found items whose found location differs from the asset's
// current expected location. IS NOT treats two NULLs as equal.
func (r *AuditItemRepo) Mismatches(ctx context.Context, auditID string) ([]domain.Mismatch, error) {
	var rows []struct {
		AssetID  string  `db:"asset_id"`
		Code     string  `db:"code"`
		Name     string  `db:"name"`
		Expected *string `db:"expected_location_id"`
		Found    *string `db:"found_location_id"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT ai.asset_id, a.code, a.name,
		       a.location_id AS expected_location_id, ai.found_location_id
		FROM audit_items ai
		JOIN assets a ON a.id = ai.asset_id
		WHERE ai.audit_id = ?
		  AND ai.found = 1
		  AND ai.found_location_id IS NOT a.location_id
		ORDER BY a.code
	`, auditID); err != nil {
		return nil, err
	}
	out := make([]domain.Mismatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Mismatch{
			AssetID: row.AssetID, AssetCode: row.Code, AssetName: row.Name,
			ExpectedLocationID: row.Expected, FoundLocationID: row.Found,
		})
	}
	return out, nil
}

// ListByAudit returns every item of the audit with its asset, by asset code.
func (r *AuditItemRepo) ListByAudit(ctx context.Context, auditID string) ([]domain.AuditItemView, error) {
	var rows []struct {
		auditItemRow
		Code     string  `db:"code"`
		Name     string  `db:"name"`
		Expected *string `db:"expected_location_id"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT ai.id, ai.audit_id, ai.asset_id, ai.found, ai.found_location_id,
		       ai.condition, ai.notes, ai.scanned_at,
		       a.code, a.name, a.location_id AS expected_location_id
		FROM audit_items ai
		JOIN assets a ON a.id = ai.asset_id
		WHERE ai.audit_id = ?
		ORDER BY a.code
	`, auditID); err != nil {
		return nil, err
	}
	out := make([]domain.AuditItemView, 0, len(rows))
	for _, row := range rows {
		it, err := row.auditItemRow.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AuditItemView{
			AuditItem: it, AssetCode: row.Code, AssetName: row.Name, ExpectedLocationID: row.Expected,
		})
	}
	return out, nil
}
