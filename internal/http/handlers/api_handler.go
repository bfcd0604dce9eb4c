package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "assettrack/internal/log"
	"assettrack/internal/services"
)

// APIHandler is the JSON surface under /api/v1 used by scanners and scripts.
type APIHandler struct {
	Audits      *services.AuditService
	Catalog     *services.CatalogService
	Assignments *services.AssignmentService
	Maintenance *services.MaintenanceService
	Dashboard   *services.DashboardService
}

type seedRequest struct {
	LocationID string `json:"locationId"`
}

type scanRequest struct {
	Code string `json:"code"`
	services.ScanPayload
}

type moveRequest struct {
	LocationID string `json:"locationId"`
}

// bindJSON rejects non-JSON bodies so a cross-site form cannot reach the API.
func bindJSON(c *fiber.Ctx, out any) error {
	if !c.Is("json") {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "expected application/json")
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed JSON body")
	}
	return nil
}

// queryBool parses an optional boolean query parameter; absent means nil.
func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be true or false")
	}
	return &v, nil
}

// queryTime parses an RFC 3339 query parameter.
func queryTime(c *fiber.Ctx, key string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Query(key))
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, key+" must be an RFC 3339 time")
	}
	return t, nil
}

// GET /api/v1/audits
func (h *APIHandler) ListAudits(c *fiber.Ctx) error {
	out, err := h.Audits.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// POST /api/v1/audits
func (h *APIHandler) CreateAudit(c *fiber.Ctx) error {
	var in services.CreateAuditInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	a, err := h.Audits.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.create", map[string]any{"audit_id": a.ID, "title": a.Title})
	return c.Status(fiber.StatusCreated).JSON(a)
}

// GET /api/v1/audits/:id
func (h *APIHandler) GetAudit(c *fiber.Ctx) error {
	a, err := h.Audits.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// POST /api/v1/audits/:id/start
func (h *APIHandler) StartAudit(c *fiber.Ctx) error {
	a, err := h.Audits.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.start", map[string]any{"audit_id": a.ID})
	return c.JSON(a)
}

// POST /api/v1/audits/:id/finalize
func (h *APIHandler) FinalizeAudit(c *fiber.Ctx) error {
	a, err := h.Audits.Finalize(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.finalize", map[string]any{"audit_id": a.ID})
	return c.JSON(a)
}

// POST /api/v1/audits/:id/seed
func (h *APIHandler) Seed(c *fiber.Ctx) error {
	var in seedRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	id := c.Params("id")
	n, err := h.Audits.SeedFromLocation(c.UserContext(), id, in.LocationID)
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.seed", map[string]any{"audit_id": id, "location_id": in.LocationID, "added": n})
	return c.JSON(fiber.Map{"added": n})
}

// POST /api/v1/audits/:id/scan
func (h *APIHandler) Scan(c *fiber.Ctx) error {
	var in scanRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	id := c.Params("id")
	it, err := h.Audits.Scan(c.UserContext(), id, in.Code, in.ScanPayload)
	if err != nil {
		return err
	}
	applog.Audit(c, "audit.scan", map[string]any{"audit_id": id, "asset_id": it.AssetID})
	return c.JSON(it)
}

// GET /api/v1/audits/:id/progress
func (h *APIHandler) Progress(c *fiber.Ctx) error {
	p, err := h.Audits.Progress(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// GET /api/v1/audits/:id/mismatches
func (h *APIHandler) Mismatches(c *fiber.Ctx) error {
	mm, err := h.Audits.Mismatches(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(mm)
}

// GET /api/v1/audits/:id/summary
func (h *APIHandler) Summary(c *fiber.Ctx) error {
	s, err := h.Audits.Summary(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(s)
}

// GET /api/v1/audits/:id/items
func (h *APIHandler) Items(c *fiber.Ctx) error {
	items, err := h.Audits.Items(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GET /api/v1/locations
func (h *APIHandler) ListLocations(c *fiber.Ctx) error {
	locs, err := h.Catalog.ListLocations(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(locs)
}

// POST /api/v1/locations
func (h *APIHandler) CreateLocation(c *fiber.Ctx) error {
	var in services.CreateLocationInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	l, err := h.Catalog.CreateLocation(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.location.create", map[string]any{"location_id": l.ID})
	return c.Status(fiber.StatusCreated).JSON(l)
}

// GET /api/v1/locations/:id/assets
func (h *APIHandler) AssetsAtLocation(c *fiber.Ctx) error {
	assets, err := h.Catalog.ListAssetsAtLocation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(assets)
}

// GET /api/v1/assets/:ref
func (h *APIHandler) GetAsset(c *fiber.Ctx) error {
	a, err := h.Catalog.GetAsset(c.UserContext(), c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// POST /api/v1/assets
func (h *APIHandler) CreateAsset(c *fiber.Ctx) error {
	var in services.CreateAssetInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	a, err := h.Catalog.CreateAsset(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.create", map[string]any{"asset_id": a.ID, "code": a.Code})
	return c.Status(fiber.StatusCreated).JSON(a)
}

// POST /api/v1/assets/:ref/move
func (h *APIHandler) MoveAsset(c *fiber.Ctx) error {
	var in moveRequest
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	a, err := h.Catalog.MoveAsset(c.UserContext(), c.Params("ref"), in.LocationID)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.asset.move", map[string]any{"asset_id": a.ID, "location_id": in.LocationID})
	return c.JSON(a)
}
