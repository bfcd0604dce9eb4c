package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "assettrack/internal/log"
	"assettrack/internal/services"
)

// GET /api/v1/categories
func (h *APIHandler) ListCategories(c *fiber.Ctx) error {
	out, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// POST /api/v1/categories
func (h *APIHandler) CreateCategory(c *fiber.Ctx) error {
	var in services.CreateCategoryInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.create", map[string]any{"category_id": cat.ID})
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// PATCH /api/v1/categories/:id
func (h *APIHandler) UpdateCategory(c *fiber.Ctx) error {
	var p services.CategoryPatch
	if err := bindJSON(c, &p); err != nil {
		return err
	}
	cat, err := h.Catalog.UpdateCategory(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.category.update", map[string]any{"category_id": cat.ID})
	return c.JSON(cat)
}

// DELETE /api/v1/categories/:id
func (h *APIHandler) DeleteCategory(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "admin.category.delete", map[string]any{"category_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/locations/tree
func (h *APIHandler) LocationTree(c *fiber.Ctx) error {
	tree, err := h.Catalog.LocationTree(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

// GET /api/v1/locations/:id
func (h *APIHandler) GetLocation(c *fiber.Ctx) error {
	l, err := h.Catalog.GetLocation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(l)
}

// PATCH /api/v1/locations/:id
func (h *APIHandler) UpdateLocation(c *fiber.Ctx) error {
	var p services.LocationPatch
	if err := bindJSON(c, &p); err != nil {
		return err
	}
	l, err := h.Catalog.UpdateLocation(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.location.update", map[string]any{"location_id": l.ID})
	return c.JSON(l)
}

// DELETE /api/v1/locations/:id
func (h *APIHandler) DeleteLocation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteLocation(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "admin.location.delete", map[string]any{"location_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/assets?q=&categoryId=&locationId=&status=&orderBy=&limit=&offset=
func (h *APIHandler) SearchAssets(c *fiber.Ctx) error {
	page, err := h.Catalog.SearchAssets(c.UserContext(), services.AssetQuery{
		Q:          c.Query("q"),
		CategoryID: c.Query("categoryId"),
		LocationID: c.Query("locationId"),
		Status:     c.Query("status"),
		OrderBy:    c.Query("orderBy"),
		Limit:      c.QueryInt("limit"),
		Offset:     c.QueryInt("offset"),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// PATCH /api/v1/assets/:ref
func (h *APIHandler) UpdateAsset(c *fiber.Ctx) error {
	var p services.AssetPatch
	if err := bindJSON(c, &p); err != nil {
		return err
	}
	a, err := h.Catalog.UpdateAsset(c.UserContext(), c.Params("ref"), p)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.update", map[string]any{"asset_id": a.ID, "code": a.Code})
	return c.JSON(a)
}

// DELETE /api/v1/assets/:ref
func (h *APIHandler) DeleteAsset(c *fiber.Ctx) error {
	ref := c.Params("ref")
	if err := h.Catalog.DeleteAsset(c.UserContext(), ref); err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.delete", map[string]any{"ref": ref})
	return c.SendStatus(fiber.StatusNoContent)
}
