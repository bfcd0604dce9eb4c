package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"assettrack/internal/domain"
	"assettrack/internal/repos"
	"assettrack/internal/validate"
)

type CreateCategoryInput struct {
	ID          string `json:"id" validate:"omitempty,ident"`
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
}

// CategoryPatch fields left nil are unchanged. A blank description clears it.
type CategoryPatch struct {
	Name        *string `json:"name" validate:"omitempty,max=80"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// LocationPatch fields left nil are unchanged. Blank parentId or notes clear them.
type LocationPatch struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	ParentID *string `json:"parentId" validate:"omitempty,ident"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

// AssetPatch fields left nil are unchanged. Blank nullable fields clear them.
type AssetPatch struct {
	Code       *string `json:"code" validate:"omitempty,assetcode"`
	Name       *string `json:"name" validate:"omitempty,max=200"`
	CategoryID *string `json:"categoryId" validate:"omitempty,ident"`
	LocationID *string `json:"locationId" validate:"omitempty,ident"`
	Status     *string `json:"status" validate:"omitempty,oneof=active inactive lost retired maintenance"`
	SerialNo   *string `json:"serialNo" validate:"omitempty,max=120"`
	Notes      *string `json:"notes" validate:"omitempty,max=2000"`
}

type AssetQuery struct {
	Q          string `json:"q"`
	CategoryID string `json:"categoryId"`
	LocationID string `json:"locationId"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive lost retired maintenance"`
	OrderBy    string `json:"orderBy" validate:"omitempty,oneof=name createdAt"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

type AssetPage struct {
	Rows  []domain.Asset `json:"rows"`
	Total int            `json:"total"`
}

// LocationNode is one location with its sub-locations, sorted by name.
type LocationNode struct {
	domain.Location
	Children []*LocationNode `json:"children"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CreateCategoryInput) (domain.Category, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return domain.Category{}, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	c := domain.Category{ID: in.ID, Name: in.Name, Description: validate.Optional(in.Description)}
	now := s.Now().UTC()
	var out domain.Category
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		cats := repos.NewCategoryRepo(tx)
		if err := cats.Create(ctx, c, now); err != nil {
			return err
		}
		var err error
		out, err = cats.ByID(ctx, c.ID)
		return err
	})
	if err != nil {
		return domain.Category{}, storeErr("create category", err)
	}
	return out, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := repos.NewCategoryRepo(s.DB).ByID(ctx, id)
	if isNoRows(err) {
		return domain.Category{}, notFound("category", id)
	}
	if err != nil {
		return domain.Category{}, storeErr("get category", err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, p CategoryPatch) (domain.Category, error) {
	p.Name = trimmed(p.Name)
	if err := check(p); err != nil {
		return domain.Category{}, err
	}
	if p.Name != nil && *p.Name == "" {
		return domain.Category{}, invalid("name", "required")
	}
	now := s.Now().UTC()
	var out domain.Category
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		cats := repos.NewCategoryRepo(tx)
		c, err := cats.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("category", id)
		}
		if err != nil {
			return err
		}
		if p.Name != nil {
			c.Name = *p.Name
		}
		c.Description = patchNullable(p.Description, c.Description)
		if err := cats.Update(ctx, c, now); err != nil {
			return err
		}
		out, err = cats.ByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Category{}, storeErr("update category", err)
	}
	return out, nil
}

// DeleteCategory refuses with ErrConflict while any asset is filed under it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		cats := repos.NewCategoryRepo(tx)
		c, err := cats.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("category", id)
		}
		if err != nil {
			return err
		}
		n, err := cats.AssetCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("category %q is used by %d asset(s): %w", c.Name, n, ErrConflict)
		}
		return cats.Delete(ctx, id)
	})
	return storeErr("delete category", err)
}

func (s *CatalogService) UpdateLocation(ctx context.Context, id string, p LocationPatch) (domain.Location, error) {
	p.Name = trimmed(p.Name)
	p.ParentID = trimmed(p.ParentID)
	if err := check(p); err != nil {
		return domain.Location{}, err
	}
	if p.Name != nil && *p.Name == "" {
		return domain.Location{}, invalid("name", "required")
	}
	now := s.Now().UTC()
	var out domain.Location
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		locs := repos.NewLocationRepo(tx)
		l, err := locs.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("location", id)
		}
		if err != nil {
			return err
		}
		if p.Name != nil {
			l.Name = *p.Name
		}
		l.ParentID = patchNullable(p.ParentID, l.ParentID)
		l.Notes = patchNullable(p.Notes, l.Notes)
		if l.ParentID != nil {
			if err := checkParent(ctx, locs, id, *l.ParentID); err != nil {
				return err
			}
		}
		l.UpdatedAt = now
		if err := locs.Update(ctx, l); err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return domain.Location{}, storeErr("update location", err)
	}
	return out, nil
}

// checkParent rejects a parent that is missing, is id itself, or sits
// below id in the tree.
func checkParent(ctx context.Context, locs *repos.LocationRepo, id, parentID string) error {
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id {
			if cur == parentID {
				return invalid("parentId", "self")
			}
			return invalid("parentId", "cycle")
		}
		if seen[cur] {
			// an older cycle that does not involve id
			return nil
		}
		seen[cur] = true
		l, err := locs.ByID(ctx, cur)
		if isNoRows(err) {
			if cur == parentID {
				return notFound("location", parentID)
			}
			return nil
		}
		if err != nil {
			return err
		}
		cur = ""
		if l.ParentID != nil {
			cur = *l.ParentID
		}
	}
	return nil
}

// DeleteLocation refuses with ErrConflict while assets, child locations or
// audit scans still point at it.
func (s *CatalogService) DeleteLocation(ctx context.Context, id string) error {
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		locs := repos.NewLocationRepo(tx)
		l, err := locs.ByID(ctx, id)
		if isNoRows(err) {
			return notFound("location", id)
		}
		if err != nil {
			return err
		}
		u, err := locs.Usage(ctx, id)
		if err != nil {
			return err
		}
		if u.InUse() {
			return fmt.Errorf("location %q has %d asset(s), %d child location(s), %d audit scan(s): %w",
				l.Name, u.Assets, u.Children, u.AuditScans, ErrConflict)
		}
		return locs.Delete(ctx, id)
	})
	return storeErr("delete location", err)
}

// LocationTree returns root locations with their descendants, siblings in
// name order. A location whose parent no longer exists is treated as a root.
func (s *CatalogService) LocationTree(ctx context.Context) ([]*LocationNode, error) {
	all, err := s.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]*LocationNode, len(all))
	for _, l := range all {
		nodes[l.ID] = &LocationNode{Location: l, Children: []*LocationNode{}}
	}
	roots := []*LocationNode{}
	for _, l := range all {
		n := nodes[l.ID]
		if l.ParentID != nil {
			if parent, ok := nodes[*l.ParentID]; ok && *l.ParentID != l.ID {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots, nil
}

func (s *CatalogService) UpdateAsset(ctx context.Context, ref string, p AssetPatch) (domain.Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Asset{}, invalid("ref", "required")
	}
	p.Code = trimmed(p.Code)
	p.Name = trimmed(p.Name)
	p.CategoryID = trimmed(p.CategoryID)
	p.LocationID = trimmed(p.LocationID)
	p.Status = trimmed(p.Status)
	if err := check(p); err != nil {
		return domain.Asset{}, err
	}
	for _, f := range []struct {
		name string
		v    *string
	}{{"code", p.Code}, {"name", p.Name}, {"status", p.Status}} {
		if f.v != nil && *f.v == "" {
			return domain.Asset{}, invalid(f.name, "required")
		}
	}
	now := s.Now().UTC()
	var out domain.Asset
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		assets := repos.NewAssetRepo(tx)
		a, err := resolveAsset(ctx, assets, ref)
		if err != nil {
			return err
		}
		if p.Code != nil {
			a.Code = *p.Code
		}
		if p.Name != nil {
			a.Name = *p.Name
		}
		if p.Status != nil {
			a.Status = domain.AssetStatus(*p.Status)
		}
		a.CategoryID = patchNullable(p.CategoryID, a.CategoryID)
		a.LocationID = patchNullable(p.LocationID, a.LocationID)
		a.SerialNo = patchNullable(p.SerialNo, a.SerialNo)
		a.Notes = patchNullable(p.Notes, a.Notes)
		if a.CategoryID != nil && p.CategoryID != nil {
			ok, err := repos.NewCategoryRepo(tx).Exists(ctx, *a.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("category", *a.CategoryID)
			}
		}
		if a.LocationID != nil && p.LocationID != nil {
			ok, err := repos.NewLocationRepo(tx).Exists(ctx, *a.LocationID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("location", *a.LocationID)
			}
		}
		a.UpdatedAt = now
		if err := assets.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Asset{}, storeErr("update asset", err)
	}
	return out, nil
}

// DeleteAsset removes an asset together with its tickets and past
// assignments. It refuses with ErrConflict while the asset is checked out
// or appears in any audit, so audit history is never rewritten.
func (s *CatalogService) DeleteAsset(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return invalid("ref", "required")
	}
	err := repos.WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		assets := repos.NewAssetRepo(tx)
		a, err := resolveAsset(ctx, assets, ref)
		if err != nil {
			return err
		}
		n, err := assets.AuditRefs(ctx, a.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("asset %s appears in %d audit(s): %w", a.Code, n, ErrConflict)
		}
		out, err := repos.NewAssignmentRepo(tx).OutstandingFor(ctx, a.ID)
		if err == nil {
			return fmt.Errorf("asset %s is checked out under %s: %w", a.Code, out.ID, ErrConflict)
		}
		if !isNoRows(err) {
			return err
		}
		return assets.Delete(ctx, a.ID)
	})
	return storeErr("delete asset", err)
}

// SearchAssets lists assets matching q, newest first unless OrderBy is "name".
func (s *CatalogService) SearchAssets(ctx context.Context, q AssetQuery) (AssetPage, error) {
	q.Q = strings.TrimSpace(q.Q)
	if err := check(q); err != nil {
		return AssetPage{}, err
	}
	limit, offset, err := pageBounds(q.Limit, q.Offset)
	if err != nil {
		return AssetPage{}, err
	}
	rows, total, err := repos.NewAssetRepo(s.DB).Search(ctx, repos.AssetFilter{
		Q:          q.Q,
		CategoryID: strings.TrimSpace(q.CategoryID),
		LocationID: strings.TrimSpace(q.LocationID),
		Status:     domain.AssetStatus(q.Status),
		OrderBy:    q.OrderBy,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return AssetPage{}, storeErr("search assets", err)
	}
	return AssetPage{Rows: rows, Total: total}, nil
}
