package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
	"assettrack/internal/validate"
)

// Clock is the wall-clock source. Each operation reads it once.
type Clock func() time.Time

type AuditService struct {
	DB  *sqlx.DB
	Now Clock
}

func NewAuditService(db *sqlx.DB, now Clock) *AuditService {
	if now == nil {
		now = time.Now
	}
	return &AuditService{DB: db, Now: now}
}

type CreateAuditInput struct {
	ID         string `json:"id" validate:"omitempty,ident"`
	Title      string `json:"title" validate:"required,max=200"`
	LocationID string `json:"locationId" validate:"omitempty,ident"`
	Notes      string `json:"notes" validate:"max=2000"`
}

// ScanPayload carries what the auditor recorded at the shelf. Values are
// trimmed before they are stored, and a nil, empty or whitespace-only field
// counts as not provided: it never clears or overwrites a value stored by an
// earlier scan. A bare " " is therefore not a condition or a note.
type ScanPayload struct {
	FoundLocationID *string `json:"foundLocationId" validate:"omitempty,ident"`
	Condition       *string `json:"condition" validate:"omitempty,max=200"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

func (p ScanPayload) normalized() ScanPayload {
	return ScanPayload{
		FoundLocationID: blankToNil(p.FoundLocationID),
		Condition:       blankToNil(p.Condition),
		Notes:           blankToNil(p.Notes),
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	return validate.Optional(*s)
}

func (s *AuditService) Create(ctx context.Context, in CreateAuditInput) (domain.Audit, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.LocationID = strings.TrimSpace(in.LocationID)
	if err := check(in); err != nil {
		return domain.Audit{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	now := s.Now()
	a := domain.Audit{
		ID:         in.ID,
		LocationID: validate.Optional(in.LocationID),
		Title:      in.Title,
		Status:     domain.AuditDraft,
		Notes:      validate.Optional(in.Notes),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if a.LocationID != nil {
			ok, err := repos.NewLocationRepo(tx).Exists(ctx, *a.LocationID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *a.LocationID)
			}
		}
		return repos.NewAuditRepo(tx).Insert(ctx, a)
	})
	if err != nil {
		return domain.Audit{}, storeErr("create audit", err)
	}
	return a, nil
}

func (s *AuditService) Get(ctx context.Context, id string) (domain.Audit, error) {
	a, err := repos.NewAuditRepo(s.DB).ByID(ctx, id)
	if isNoRows(err) {
		return domain.Audit{}, notFound("audit", id)
	}
	if err != nil {
		return domain.Audit{}, storeErr("get audit", err)
	}
	return a, nil
}

// List returns audits oldest first, optionally only those in status.
func (s *AuditService) List(ctx context.Context, status string) ([]domain.Audit, error) {
	status = strings.TrimSpace(status)
	if status != "" && !domain.AuditStatus(status).Valid() {
		return nil, invalid("status", "oneof")
	}
	out, err := repos.NewAuditRepo(s.DB).List(ctx, domain.AuditStatus(status))
	if err != nil {
		return nil, storeErr("list audits", err)
	}
	return out, nil
}

// Start moves a draft audit to in_progress and stamps startedAt.
func (s *AuditService) Start(ctx context.Context, id string) (domain.Audit, error) {
	return s.transition(ctx, id, domain.AuditDraft)
}

// Finalize moves an in_progress audit to finalized and stamps finalizedAt.
func (s *AuditService) Finalize(ctx context.Context, id string) (domain.Audit, error) {
	return s.transition(ctx, id, domain.AuditInProgress)
}

// transition advances an audit that is currently in from to from.Next().
func (s *AuditService) transition(ctx context.Context, id string, from domain.AuditStatus) (domain.Audit, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Audit{}, invalid("id", "required")
	}
	to, ok := from.Next()
	if !ok {
		return domain.Audit{}, fmt.Errorf("audit %q: %s is terminal: %w", id, from, ErrInvalidTransition)
	}

	now := s.Now()
	var out domain.Audit
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		audits := repos.NewAuditRepo(tx)
		moved, err := audits.Transition(ctx, id, from, to, now)
		if err != nil {
			return err
		}
		a, err := audits.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("audit", id)
		}
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("audit %q is %s, cannot move to %s: %w", id, a.Status, to, ErrInvalidTransition)
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Audit{}, storeErr("transition audit", err)
	}
	return out, nil
}

// SeedFromLocation adds an unscanned item for every asset expected at
// locationID that the audit does not cover yet, and returns how many were
// added. Items for assets that left the location are kept.
func (s *AuditService) SeedFromLocation(ctx context.Context, auditID, locationID string) (int, error) {
	auditID, locationID = strings.TrimSpace(auditID), strings.TrimSpace(locationID)
	if auditID == "" {
		return 0, invalid("auditId", "required")
	}
	if locationID == "" {
		return 0, invalid("locationId", "required")
	}

	var added int
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		ok, err := repos.NewLocationRepo(tx).Exists(ctx, locationID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("location", locationID)
		}

		assets, err := repos.NewAssetRepo(tx).ListByLocation(ctx, locationID)
		if err != nil {
			return err
		}
		items := repos.NewAuditItemRepo(tx)
		seen, err := items.AssetIDs(ctx, auditID)
		if err != nil {
			return err
		}
		n := 0
		for _, a := range assets {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			inserted, err := items.InsertUnscanned(ctx, uuid.NewString(), auditID, a.ID)
			if err != nil {
				return err
			}
			if inserted {
				n++
			}
		}
		added = n
		return nil
	})
	if err != nil {
		return 0, storeErr("seed audit items", err)
	}
	return added, nil
}

// Scan records a sighting of the asset identified by code (or, failing
// that, id) and returns its item, creating it if the asset was never seeded.
// Scanning does not change the audit's status.
func (s *AuditService) Scan(ctx context.Context, auditID, assetCodeOrID string, payload ScanPayload) (domain.AuditItem, error) {
	auditID, assetCodeOrID = strings.TrimSpace(auditID), strings.TrimSpace(assetCodeOrID)
	if auditID == "" {
		return domain.AuditItem{}, invalid("auditId", "required")
	}
	if assetCodeOrID == "" {
		return domain.AuditItem{}, invalid("assetCodeOrId", "required")
	}
	payload = payload.normalized()
	if err := check(payload); err != nil {
		return domain.AuditItem{}, err
	}

	now := s.Now().UTC()
	var out domain.AuditItem
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		asset, err := resolveAsset(ctx, repos.NewAssetRepo(tx), assetCodeOrID)
		if err != nil {
			return err
		}
		if payload.FoundLocationID != nil {
			ok, err := repos.NewLocationRepo(tx).Exists(ctx, *payload.FoundLocationID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *payload.FoundLocationID)
			}
		}

		items := repos.NewAuditItemRepo(tx)
		if err := items.UpsertScan(ctx, domain.AuditItem{
			ID:              uuid.NewString(),
			AuditID:         auditID,
			AssetID:         asset.ID,
			Found:           true,
			FoundLocationID: payload.FoundLocationID,
			Condition:       payload.Condition,
			Notes:           payload.Notes,
			ScannedAt:       &now,
		}); err != nil {
			return err
		}
		out, err = items.ByAuditAsset(ctx, auditID, asset.ID)
		return err
	})
	if err != nil {
		return domain.AuditItem{}, storeErr("scan asset", err)
	}
	return out, nil
}

// Progress reports item totals; Percent is 0 for an audit without items.
func (s *AuditService) Progress(ctx context.Context, auditID string) (domain.Progress, error) {
	var out domain.Progress
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		var err error
		out, err = progress(ctx, repos.NewAuditItemRepo(tx), auditID)
		return err
	})
	if err != nil {
		return domain.Progress{}, storeErr("audit progress", err)
	}
	return out, nil
}

// Mismatches lists found assets whose recorded location differs from their
// current expected location.
func (s *AuditService) Mismatches(ctx context.Context, auditID string) ([]domain.Mismatch, error) {
	var out []domain.Mismatch
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		var err error
		out, err = repos.NewAuditItemRepo(tx).Mismatches(ctx, auditID)
		return err
	})
	if err != nil {
		return nil, storeErr("audit mismatches", err)
	}
	return out, nil
}

// Summary recomputes progress and mismatches from one snapshot.
func (s *AuditService) Summary(ctx context.Context, auditID string) (domain.Summary, error) {
	var out domain.Summary
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		items := repos.NewAuditItemRepo(tx)
		p, err := progress(ctx, items, auditID)
		if err != nil {
			return err
		}
		mm, err := items.Mismatches(ctx, auditID)
		if err != nil {
			return err
		}
		out = domain.Summary{Progress: p, Mismatches: mm}
		return nil
	})
	if err != nil {
		return domain.Summary{}, storeErr("audit summary", err)
	}
	return out, nil
}

// Items lists the audit's items with asset code and name.
func (s *AuditService) Items(ctx context.Context, auditID string) ([]domain.AuditItemView, error) {
	var out []domain.AuditItemView
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := requireAudit(ctx, tx, auditID); err != nil {
			return err
		}
		var err error
		out, err = repos.NewAuditItemRepo(tx).ListByAudit(ctx, auditID)
		return err
	})
	if err != nil {
		return nil, storeErr("audit items", err)
	}
	return out, nil
}

func requireAudit(ctx context.Context, tx *sqlx.Tx, id string) error {
	ok, err := repos.NewAuditRepo(tx).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("audit", id)
	}
	return nil
}

func resolveAsset(ctx context.Context, assets *repos.AssetRepo, codeOrID string) (domain.Asset, error) {
	a, err := assets.ByCode(ctx, codeOrID)
	if err == nil {
		return a, nil
	}
	if !isNoRows(err) {
		return domain.Asset{}, err
	}
	a, err = assets.ByID(ctx, codeOrID)
	if isNoRows(err) {
		return domain.Asset{}, notFound("asset", codeOrID)
	}
	return a, err
}

func progress(ctx context.Context, items *repos.AuditItemRepo, auditID string) (domain.Progress, error) {
	total, found, err := items.Progress(ctx, auditID)
	if err != nil {
		return domain.Progress{}, err
	}
	return domain.Progress{Total: total, Found: found, Percent: percent(found, total)}, nil
}

// percent rounds half up, 0 when total is 0.
func percent(found, total int) int {
	if total <= 0 {
		return 0
	}
	return (found*200 + total) / (2 * total)
}
