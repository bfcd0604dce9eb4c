package handlers

import (
	"github.com/gofiber/fiber/v2"

	"assettrack/internal/domain"
	applog "assettrack/internal/log"
	"assettrack/internal/services"
)

// GET /api/v1/dashboard
func (h *APIHandler) GetDashboard(c *fiber.Ctx) error {
	ov, err := h.Dashboard.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(ov)
}

// GET /api/v1/assignments?userId=&asset=&returned=&limit=&offset=
func (h *APIHandler) ListAssignments(c *fiber.Ctx) error {
	returned, err := queryBool(c, "returned")
	if err != nil {
		return err
	}
	page, err := h.Assignments.List(c.UserContext(), services.AssignmentQuery{
		UserID:   c.Query("userId"),
		Asset:    c.Query("asset"),
		Returned: returned,
		Limit:    c.QueryInt("limit"),
		Offset:   c.QueryInt("offset"),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GET /api/v1/assignments/overdue
func (h *APIHandler) OverdueAssignments(c *fiber.Ctx) error {
	out, err := h.Assignments.Overdue(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// GET /api/v1/assignments/:id
func (h *APIHandler) GetAssignment(c *fiber.Ctx) error {
	a, err := h.Assignments.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

// POST /api/v1/assignments
// A blank userId checks the asset out to the caller.
func (h *APIHandler) Checkout(c *fiber.Ctx) error {
	var in services.CheckoutInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.UserID == "" {
		if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
			in.UserID = u.ID
		}
	}
	a, err := h.Assignments.Checkout(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "assignment.checkout", map[string]any{"assignment_id": a.ID, "asset_id": a.AssetID, "user_id": a.UserID})
	return c.Status(fiber.StatusCreated).JSON(a)
}

// POST /api/v1/assignments/:id/return
func (h *APIHandler) ReturnAssignment(c *fiber.Ctx) error {
	var in services.ReturnInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	a, err := h.Assignments.Return(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "assignment.return", map[string]any{"assignment_id": a.ID, "asset_id": a.AssetID})
	return c.JSON(a)
}

// GET /api/v1/tickets?asset=&status=&limit=&offset=
func (h *APIHandler) ListTickets(c *fiber.Ctx) error {
	page, err := h.Maintenance.List(c.UserContext(), services.TicketQuery{
		Asset:  c.Query("asset"),
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	})
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// POST /api/v1/tickets
func (h *APIHandler) OpenTicket(c *fiber.Ctx) error {
	var in services.OpenTicketInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	t, err := h.Maintenance.Open(c.UserContext(), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "ticket.open", map[string]any{"ticket_id": t.ID, "asset_id": t.AssetID})
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GET /api/v1/tickets/:id
func (h *APIHandler) GetTicket(c *fiber.Ctx) error {
	t, err := h.Maintenance.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// PATCH /api/v1/tickets/:id
func (h *APIHandler) UpdateTicket(c *fiber.Ctx) error {
	var p services.TicketPatch
	if err := bindJSON(c, &p); err != nil {
		return err
	}
	t, err := h.Maintenance.Update(c.UserContext(), c.Params("id"), p)
	if err != nil {
		return err
	}
	applog.Audit(c, "ticket.update", map[string]any{"ticket_id": t.ID, "status": t.Status})
	return c.JSON(t)
}

// GET /api/v1/tickets/top?limit=
func (h *APIHandler) TopTicketAssets(c *fiber.Ctx) error {
	out, err := h.Maintenance.TopAssets(c.UserContext(), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// GET /api/v1/tickets/cost?from=&to=
func (h *APIHandler) TicketCost(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}
	total, err := h.Maintenance.TotalCost(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"from": from, "to": to, "totalCostCents": total})
}

// GET /api/v1/tickets/month?year=&month=
func (h *APIHandler) TicketMonth(c *fiber.Ctx) error {
	m, err := h.Maintenance.Month(c.UserContext(), c.QueryInt("year"), c.QueryInt("month"))
	if err != nil {
		return err
	}
	return c.JSON(m)
}
