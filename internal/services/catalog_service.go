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

// CatalogService maintains the locations and assets audits are checked against.
type CatalogService struct {
	DB  *sqlx.DB
	Now Clock
}

func NewCatalogService(db *sqlx.DB, now Clock) *CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogService{DB: db, Now: now}
}

type CreateLocationInput struct {
	ID       string `json:"id" validate:"omitempty,ident"`
	Name     string `json:"name" validate:"required,max=120"`
	ParentID string `json:"parentId" validate:"omitempty,ident"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type CreateAssetInput struct {
	ID         string `json:"id" validate:"omitempty,ident"`
	Code       string `json:"code" validate:"required,assetcode"`
	Name       string `json:"name" validate:"required,max=200"`
	CategoryID string `json:"categoryId" validate:"omitempty,ident"`
	LocationID string `json:"locationId" validate:"omitempty,ident"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive lost retired maintenance"`
	SerialNo   string `json:"serialNo" validate:"max=120"`
	Notes      string `json:"notes" validate:"max=2000"`
}

func (s *CatalogService) CreateLocation(ctx context.Context, in CreateLocationInput) (domain.Location, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if err := check(in); err != nil {
		return domain.Location{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := s.Now().UTC()
	l := domain.Location{
		ID:        in.ID,
		Name:      in.Name,
		ParentID:  validate.Optional(in.ParentID),
		Notes:     validate.Optional(in.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		locs := repos.NewLocationRepo(tx)
		if l.ParentID != nil {
			if *l.ParentID == l.ID {
				return invalid("parentId", "self")
			}
			ok, err := locs.Exists(ctx, *l.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *l.ParentID)
			}
		}
		return locs.Create(ctx, l)
	})
	if err != nil {
		return domain.Location{}, storeErr("create location", err)
	}
	return l, nil
}

func (s *CatalogService) ListLocations(ctx context.Context) ([]domain.Location, error) {
	out, err := repos.NewLocationRepo(s.DB).List(ctx)
	if err != nil {
		return nil, storeErr("list locations", err)
	}
	return out, nil
}

func (s *CatalogService) GetLocation(ctx context.Context, id string) (domain.Location, error) {
	l, err := repos.NewLocationRepo(s.DB).ByID(ctx, id)
	if isNoRows(err) {
		return domain.Location{}, notFound("location", id)
	}
	if err != nil {
		return domain.Location{}, storeErr("get location", err)
	}
	return l, nil
}

func (s *CatalogService) CreateAsset(ctx context.Context, in CreateAssetInput) (domain.Asset, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	in.LocationID = strings.TrimSpace(in.LocationID)
	in.Status = strings.TrimSpace(in.Status)
	if err := check(in); err != nil {
		return domain.Asset{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Status == "" {
		in.Status = string(domain.AssetActive)
	}
	now := s.Now().UTC()
	a := domain.Asset{
		ID:         in.ID,
		Code:       in.Code,
		Name:       in.Name,
		CategoryID: validate.Optional(in.CategoryID),
		LocationID: validate.Optional(in.LocationID),
		Status:     domain.AssetStatus(in.Status),
		SerialNo:   validate.Optional(in.SerialNo),
		Notes:      validate.Optional(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if a.CategoryID != nil {
			ok, err := repos.NewCategoryRepo(tx).Exists(ctx, *a.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("category", *a.CategoryID)
			}
		}
		if a.LocationID != nil {
			ok, err := repos.NewLocationRepo(tx).Exists(ctx, *a.LocationID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *a.LocationID)
			}
		}
		return repos.NewAssetRepo(tx).Create(ctx, a)
	})
	if err != nil {
		return domain.Asset{}, storeErr("create asset", err)
	}
	return a, nil
}

// GetAsset looks ref up as a code first, then as an id.
func (s *CatalogService) GetAsset(ctx context.Context, ref string) (domain.Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Asset{}, invalid("ref", "required")
	}
	a, err := resolveAsset(ctx, repos.NewAssetRepo(s.DB), ref)
	if err != nil {
		return domain.Asset{}, storeErr("get asset", err)
	}
	return a, nil
}

func (s *CatalogService) ListAssetsAtLocation(ctx context.Context, locationID string) ([]domain.Asset, error) {
	var out []domain.Asset
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		ok, err := repos.NewLocationRepo(tx).Exists(ctx, locationID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("location", locationID)
		}
		out, err = repos.NewAssetRepo(tx).ListByLocation(ctx, locationID)
		return err
	})
	if err != nil {
		return nil, storeErr("list assets", err)
	}
	return out, nil
}

// MoveAsset changes where the asset is expected to be. A blank locationID
// clears it. Open audits compare against the new location from then on.
func (s *CatalogService) MoveAsset(ctx context.Context, ref, locationID string) (domain.Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Asset{}, invalid("ref", "required")
	}
	loc := validate.Optional(locationID)
	now := s.Now().UTC()
	var out domain.Asset
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		assets := repos.NewAssetRepo(tx)
		a, err := resolveAsset(ctx, assets, ref)
		if err != nil {
			return err
		}
		if loc != nil {
			ok, err := repos.NewLocationRepo(tx).Exists(ctx, *loc)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *loc)
			}
		}
		if err := assets.Move(ctx, a.ID, loc, now); err != nil {
			return err
		}
		out, err = assets.ByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return domain.Asset{}, storeErr("move asset", err)
	}
	return out, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out, err := repos.NewCategoryRepo(s.DB).List(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return out, nil
}
