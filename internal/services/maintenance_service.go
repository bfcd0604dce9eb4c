package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
	"assettrack/internal/validate"
)

// MaintenanceService tracks repair tickets raised against assets.
type MaintenanceService struct {
	DB  *sqlx.DB
	Now Clock
}

func NewMaintenanceService(db *sqlx.DB, now Clock) *MaintenanceService {
	if now == nil {
		now = time.Now
	}
	return &MaintenanceService{DB: db, Now: now}
}

type OpenTicketInput struct {
	ID          string `json:"id" validate:"omitempty,ident"`
	Asset       string `json:"asset" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	CostCents   int64  `json:"costCents" validate:"min=0"`
}

// TicketPatch fields left nil are unchanged. A blank description clears it.
type TicketPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	CostCents   *int64  `json:"costCents" validate:"omitempty,min=0"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress done canceled"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

type TicketQuery struct {
	Asset  string `json:"asset"`
	Status string `json:"status" validate:"omitempty,oneof=open in_progress done canceled"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type TicketPage struct {
	Rows  []domain.Ticket `json:"rows"`
	Total int             `json:"total"`
}

func (s *MaintenanceService) Open(ctx context.Context, in OpenTicketInput) (domain.Ticket, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Asset = strings.TrimSpace(in.Asset)
	in.Title = strings.TrimSpace(in.Title)
	if err := check(in); err != nil {
		return domain.Ticket{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	t := domain.Ticket{
		ID:          in.ID,
		Title:       in.Title,
		Description: validate.Optional(in.Description),
		Status:      domain.TicketOpen,
		OpenedAt:    s.Now().UTC(),
		CostCents:   in.CostCents,
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		asset, err := resolveAsset(ctx, repos.NewAssetRepo(tx), in.Asset)
		if err != nil {
			return err
		}
		t.AssetID = asset.ID
		return repos.NewTicketRepo(tx).Insert(ctx, t)
	})
	if err != nil {
		return domain.Ticket{}, storeErr("open ticket", err)
	}
	return t, nil
}

func (s *MaintenanceService) Get(ctx context.Context, id string) (domain.Ticket, error) {
	t, err := repos.NewTicketRepo(s.DB).ByID(ctx, id)
	if isNoRows(err) {
		return domain.Ticket{}, notFound("ticket", id)
	}
	if err != nil {
		return domain.Ticket{}, storeErr("get ticket", err)
	}
	return t, nil
}

// Update applies p. The first move to done stamps ClosedAt; later status
// changes keep that stamp.
func (s *MaintenanceService) Update(ctx context.Context, id string, p TicketPatch) (domain.Ticket, error) {
	p.Title = trimmed(p.Title)
	p.Status = trimmed(p.Status)
	if err := check(p); err != nil {
		return domain.Ticket{}, err
	}
	if p.Title != nil && *p.Title == "" {
		return domain.Ticket{}, invalid("title", "required")
	}
	if p.Status != nil && *p.Status == "" {
		return domain.Ticket{}, invalid("status", "required")
	}
	now := s.Now().UTC()
	var out domain.Ticket
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		tickets := repos.NewTicketRepo(tx)
		t, err := tickets.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("ticket", id)
		}
		if err != nil {
			return err
		}
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.CostCents != nil {
			t.CostCents = *p.CostCents
		}
		t.Description = patchNullable(p.Description, t.Description)
		t.Notes = patchNullable(p.Notes, t.Notes)
		if p.Status != nil {
			t.Status = domain.TicketStatus(*p.Status)
			if t.Status == domain.TicketDone && t.ClosedAt == nil {
				t.ClosedAt = &now
			}
		}
		if err := tickets.Update(ctx, t); err != nil {
			return err
		}
		out, err = tickets.ByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Ticket{}, storeErr("update ticket", err)
	}
	return out, nil
}

// List pages through tickets, newest first.
func (s *MaintenanceService) List(ctx context.Context, q TicketQuery) (TicketPage, error) {
	if err := check(q); err != nil {
		return TicketPage{}, err
	}
	limit, offset, err := pageBounds(q.Limit, q.Offset)
	if err != nil {
		return TicketPage{}, err
	}
	f := repos.TicketFilter{Status: domain.TicketStatus(q.Status), Limit: limit, Offset: offset}
	var page TicketPage
	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if ref := strings.TrimSpace(q.Asset); ref != "" {
			asset, err := resolveAsset(ctx, repos.NewAssetRepo(tx), ref)
			if err != nil {
				return err
			}
			f.AssetID = asset.ID
		}
		var err error
		page.Rows, page.Total, err = repos.NewTicketRepo(tx).List(ctx, f)
		return err
	})
	if err != nil {
		return TicketPage{}, storeErr("list tickets", err)
	}
	return page, nil
}

// TopAssets ranks assets by ticket count. limit 0 means 10; at most 100.
func (s *MaintenanceService) TopAssets(ctx context.Context, limit int) ([]domain.AssetTicketCount, error) {
	if limit == 0 {
		limit = 10
	}
	if limit < 1 || limit > 100 {
		return nil, invalid("limit", "max=100")
	}
	out, err := repos.NewTicketRepo(s.DB).TopAssets(ctx, limit)
	if err != nil {
		return nil, storeErr("top assets", err)
	}
	return out, nil
}

// TotalCost sums ticket costs for tickets opened within [from, to].
func (s *MaintenanceService) TotalCost(ctx context.Context, from, to time.Time) (int64, error) {
	if to.Before(from) {
		return 0, invalid("to", "gtefield=from")
	}
	n, err := repos.NewTicketRepo(s.DB).CostBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return 0, storeErr("total cost", err)
	}
	return n, nil
}

// Month summarises tickets opened in one UTC calendar month.
func (s *MaintenanceService) Month(ctx context.Context, year, month int) (domain.MaintenanceMonth, error) {
	if month < 1 || month > 12 {
		return domain.MaintenanceMonth{}, invalid("month", "min=1,max=12")
	}
	if year < 1970 || year > 9999 {
		return domain.MaintenanceMonth{}, invalid("year", "min=1970")
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	open, done, cost, err := repos.NewTicketRepo(s.DB).Month(ctx, from, from.AddDate(0, 1, 0))
	if err != nil {
		return domain.MaintenanceMonth{}, storeErr("maintenance month", err)
	}
	return domain.MaintenanceMonth{Year: year, Month: month, Open: open, Done: done, TotalCostCents: cost}, nil
}
