package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "assettrack/internal/log"
	"assettrack/internal/services"
)

// AdminHandler maintains the location and asset catalog (ADMIN only).
type AdminHandler struct {
	Catalog *services.CatalogService
}

// GET /admin
func (h *AdminHandler) Page(c *fiber.Ctx) error {
	ctx := c.UserContext()
	locs, err := h.Catalog.ListLocations(ctx)
	if err != nil {
		return err
	}
	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	at := c.Query("location")
	if at == "" && len(locs) > 0 {
		at = locs[0].ID
	}
	var assets any
	if at != "" {
		list, err := h.Catalog.ListAssetsAtLocation(ctx, at)
		if err != nil {
			return err
		}
		assets = list
	}
	return render(c, "admin_catalog", fiber.Map{
		"Locations":  locs,
		"Categories": cats,
		"At":         at,
		"Assets":     assets,
	})
}

// POST /admin/locations
func (h *AdminHandler) CreateLocation(c *fiber.Ctx) error {
	l, err := h.Catalog.CreateLocation(c.UserContext(), services.CreateLocationInput{
		Name:     c.FormValue("name"),
		ParentID: c.FormValue("parent_id"),
		Notes:    c.FormValue("notes"),
	})
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.location.create", map[string]any{"location_id": l.ID, "name": l.Name})
	return c.Redirect("/admin?location=" + l.ID)
}

// POST /admin/assets
func (h *AdminHandler) CreateAsset(c *fiber.Ctx) error {
	a, err := h.Catalog.CreateAsset(c.UserContext(), services.CreateAssetInput{
		Code:       c.FormValue("code"),
		Name:       c.FormValue("name"),
		CategoryID: c.FormValue("category_id"),
		LocationID: c.FormValue("location_id"),
		SerialNo:   c.FormValue("serial_no"),
		Notes:      c.FormValue("notes"),
	})
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.create", map[string]any{"asset_id": a.ID, "code": a.Code})
	return c.Redirect("/admin?location=" + c.FormValue("location_id"))
}

// POST /admin/assets/move
func (h *AdminHandler) MoveAsset(c *fiber.Ctx) error {
	to := c.FormValue("location_id")
	a, err := h.Catalog.MoveAsset(c.UserContext(), c.FormValue("ref"), to)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.move", map[string]any{"asset_id": a.ID, "location_id": to})
	return c.Redirect("/admin?location=" + to)
}
