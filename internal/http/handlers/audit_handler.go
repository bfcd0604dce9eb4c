package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "assettrack/internal/log"
	"assettrack/internal/services"
	"assettrack/internal/validate"
)

// AuditHandler serves the server-rendered audit pages and their form posts.
type AuditHandler struct {
	Audits  *services.AuditService
	Catalog *services.CatalogService
}

// GET /audits
func (h *AuditHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	audits, err := h.Audits.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	locs, err := h.Catalog.ListLocations(c.UserContext())
	if err != nil {
		return err
	}
	return render(c, "audits", fiber.Map{"Audits": audits, "Status": status, "Locations": locs})
}

// POST /audits
func (h *AuditHandler) Create(c *fiber.Ctx) error {
	a, err := h.Audits.Create(c.UserContext(), services.CreateAuditInput{
		Title:      c.FormValue("title"),
		LocationID: c.FormValue("location_id"),
		Notes:      c.FormValue("notes"),
	})
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.create", map[string]any{"audit_id": a.ID, "title": a.Title})
	return c.Redirect("/audits/" + a.ID)
}

// GET /audits/:id
func (h *AuditHandler) Detail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	a, err := h.Audits.Get(ctx, id)
	if err != nil {
		return err
	}
	sum, err := h.Audits.Summary(ctx, id)
	if err != nil {
		return err
	}
	items, err := h.Audits.Items(ctx, id)
	if err != nil {
		return err
	}
	locs, err := h.Catalog.ListLocations(ctx)
	if err != nil {
		return err
	}
	return render(c, "audit", fiber.Map{
		"Audit":     a,
		"Summary":   sum,
		"Items":     items,
		"Locations": locs,
	})
}

// POST /audits/:id/start
func (h *AuditHandler) Start(c *fiber.Ctx) error {
	a, err := h.Audits.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.start", map[string]any{"audit_id": a.ID})
	return c.Redirect("/audits/" + a.ID)
}

// POST /audits/:id/finalize
func (h *AuditHandler) Finalize(c *fiber.Ctx) error {
	a, err := h.Audits.Finalize(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.finalize", map[string]any{"audit_id": a.ID})
	return c.Redirect("/audits/" + a.ID)
}

// POST /audits/:id/seed
func (h *AuditHandler) Seed(c *fiber.Ctx) error {
	id := c.Params("id")
	loc := c.FormValue("location_id")
	n, err := h.Audits.SeedFromLocation(c.UserContext(), id, loc)
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.seed", map[string]any{"audit_id": id, "location_id": loc, "added": n})
	return c.Redirect("/audits/" + id)
}

// POST /audits/:id/scan
func (h *AuditHandler) Scan(c *fiber.Ctx) error {
	id := c.Params("id")
	it, err := h.Audits.Scan(c.UserContext(), id, c.FormValue("code"), services.ScanPayload{
		FoundLocationID: validate.Optional(c.FormValue("found_location_id")),
		Condition:       validate.Optional(c.FormValue("condition")),
		Notes:           validate.Optional(c.FormValue("notes")),
	})
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.scan", map[string]any{"audit_id": id, "asset_id": it.AssetID})
	return c.Redirect("/audits/" + id)
}
