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

// AssignmentService checks assets out to users and back in. An asset has
// at most one outstanding assignment; the store's partial unique index
// decides races between concurrent checkouts.
type AssignmentService struct {
	DB  *sqlx.DB
	Now Clock
}

func NewAssignmentService(db *sqlx.DB, now Clock) *AssignmentService {
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{DB: db, Now: now}
}

type CheckoutInput struct {
	ID           string     `json:"id" validate:"omitempty,ident"`
	Asset        string     `json:"asset" validate:"required,max=64"`
	UserID       string     `json:"userId" validate:"required,max=64"`
	DueAt        *time.Time `json:"dueAt"`
	ConditionOut string     `json:"conditionOut" validate:"max=200"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

// ReturnInput: a blank Notes keeps the notes written at checkout.
type ReturnInput struct {
	ConditionIn string `json:"conditionIn" validate:"max=200"`
	Notes       string `json:"notes" validate:"max=2000"`
}

type AssignmentQuery struct {
	UserID   string `json:"userId"`
	Asset    string `json:"asset"`
	Returned *bool  `json:"returned"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type AssignmentPage struct {
	Rows  []domain.Assignment `json:"rows"`
	Total int                 `json:"total"`
}

// Checkout assigns the asset (code or id) to a user. It fails with
// ErrConflict while the asset is still out under another assignment.
func (s *AssignmentService) Checkout(ctx context.Context, in CheckoutInput) (domain.Assignment, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Asset = strings.TrimSpace(in.Asset)
	in.UserID = strings.TrimSpace(in.UserID)
	if err := check(in); err != nil {
		return domain.Assignment{}, err
	}
	now := s.Now().UTC()
	if in.DueAt != nil && !in.DueAt.After(now) {
		return domain.Assignment{}, invalid("dueAt", "future")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	a := domain.Assignment{
		ID:           in.ID,
		UserID:       in.UserID,
		AssignedAt:   now,
		ConditionOut: validate.Optional(in.ConditionOut),
		Notes:        validate.Optional(in.Notes),
	}
	if in.DueAt != nil {
		due := in.DueAt.UTC()
		a.DueAt = &due
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		asset, err := resolveAsset(ctx, repos.NewAssetRepo(tx), in.Asset)
		if err != nil {
			return err
		}
		a.AssetID = asset.ID
		ok, err := repos.NewUserRepo(tx).Exists(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("user", in.UserID)
		}
		assignments := repos.NewAssignmentRepo(tx)
		cur, err := assignments.OutstandingFor(ctx, asset.ID)
		if err == nil {
			return fmt.Errorf("asset %s is already checked out under %s: %w", asset.Code, cur.ID, ErrConflict)
		}
		if !isNoRows(err) {
			return err
		}
		return assignments.Insert(ctx, a)
	})
	if err != nil {
		return domain.Assignment{}, storeErr("checkout", err)
	}
	return a, nil
}

// Return closes an outstanding assignment. Returning twice is
// ErrInvalidTransition.
func (s *AssignmentService) Return(ctx context.Context, id string, in ReturnInput) (domain.Assignment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Assignment{}, invalid("id", "required")
	}
	if err := check(in); err != nil {
		return domain.Assignment{}, err
	}
	now := s.Now().UTC()
	var out domain.Assignment
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		assignments := repos.NewAssignmentRepo(tx)
		ok, err := assignments.MarkReturned(ctx, id, validate.Optional(in.ConditionIn), validate.Optional(in.Notes), now)
		if err != nil {
			return err
		}
		out, err = assignments.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("assignment", id)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("assignment %q was returned at %s: %w",
				id, out.ReturnedAt.Format(time.RFC3339), ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return domain.Assignment{}, storeErr("return assignment", err)
	}
	return out, nil
}

func (s *AssignmentService) Get(ctx context.Context, id string) (domain.Assignment, error) {
	a, err := repos.NewAssignmentRepo(s.DB).ByID(ctx, id)
	if isNoRows(err) {
		return domain.Assignment{}, notFound("assignment", id)
	}
	if err != nil {
		return domain.Assignment{}, storeErr("get assignment", err)
	}
	return a, nil
}

// List pages through assignments, newest checkout first.
func (s *AssignmentService) List(ctx context.Context, q AssignmentQuery) (AssignmentPage, error) {
	limit, offset, err := pageBounds(q.Limit, q.Offset)
	if err != nil {
		return AssignmentPage{}, err
	}
	f := repos.AssignmentFilter{
		UserID:   strings.TrimSpace(q.UserID),
		Returned: q.Returned,
		Limit:    limit,
		Offset:   offset,
	}
	var page AssignmentPage
	err = repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if ref := strings.TrimSpace(q.Asset); ref != "" {
			asset, err := resolveAsset(ctx, repos.NewAssetRepo(tx), ref)
			if err != nil {
				return err
			}
			f.AssetID = asset.ID
		}
		var err error
		page.Rows, page.Total, err = repos.NewAssignmentRepo(tx).List(ctx, f)
		return err
	})
	if err != nil {
		return AssignmentPage{}, storeErr("list assignments", err)
	}
	return page, nil
}

// Outstanding lists assignments not yet returned, optionally for one user.
func (s *AssignmentService) Outstanding(ctx context.Context, userID string, limit, offset int) (AssignmentPage, error) {
	out := false
	return s.List(ctx, AssignmentQuery{UserID: userID, Returned: &out, Limit: limit, Offset: offset})
}

// Overdue lists outstanding assignments whose due time has passed,
// earliest due first.
func (s *AssignmentService) Overdue(ctx context.Context) ([]domain.Assignment, error) {
	out, err := repos.NewAssignmentRepo(s.DB).Overdue(ctx, s.Now().UTC())
	if err != nil {
		return nil, storeErr("list overdue", err)
	}
	return out, nil
}
