package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "assettrack/internal/log"
)

// AppOptions tunes middleware that tests need to relax or silence.
type AppOptions struct {
	// AccessLog enables fiber's per-request access line on stdout.
	AccessLog bool
	// LoginMax is the POST /login budget per IP per 10 minutes (default 5).
	LoginMax int
	// RequestMax is the global per-IP budget per minute (default 120).
	RequestMax int
}

// NewApp builds the fiber app: middleware stack, pages, JSON API.
func NewApp(d *Deps, opts AppOptions) *fiber.App {
	if opts.LoginMax <= 0 {
		opts.LoginMax = 5
	}
	if opts.RequestMax <= 0 {
		opts.RequestMax = 120
	}

	app := fiber.New(fiber.Config{
		Views:        NewViews(d.Config.TemplatesDir),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(CurrentUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        opts.RequestMax,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/static/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests. Please slow down.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   d.Config.CookieSecure,
		ContextKey:     "csrf",
		// the JSON API only accepts application/json bodies
		Next: isAPI,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))

	// ---------- Static assets ----------
	app.Static("/static", d.Config.StaticDir)

	// ---------- Pages ----------
	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/audits") })

	authH := d.AuthHandler
	app.Get("/login", authH.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        opts.LoginMax,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), authH.Login)
	app.Post("/logout", authH.Logout)

	audits := app.Group("/audits", RequireUser(d.Auth))
	auditH := d.AuditHandler
	audits.Get("/", auditH.List)
	audits.Post("/", auditH.Create)
	audits.Get("/:id", auditH.Detail)
	audits.Post("/:id/start", auditH.Start)
	audits.Post("/:id/finalize", auditH.Finalize)
	audits.Post("/:id/seed", auditH.Seed)
	audits.Post("/:id/scan", auditH.Scan)

	admin := app.Group("/admin", RequireAdmin(d.Auth))
	adminH := d.AdminHandler
	admin.Get("/", adminH.Page)
	admin.Post("/locations", adminH.CreateLocation)
	admin.Post("/assets", adminH.CreateAsset)
	admin.Post("/assets/move", adminH.MoveAsset)

	// ---------- JSON API ----------
	api := app.Group("/api/v1", RequireUser(d.Auth))
	apiH := d.APIHandler
	api.Get("/audits", apiH.ListAudits)
	api.Post("/audits", apiH.CreateAudit)
	api.Get("/audits/:id", apiH.GetAudit)
	api.Post("/audits/:id/start", apiH.StartAudit)
	api.Post("/audits/:id/finalize", apiH.FinalizeAudit)
	api.Post("/audits/:id/seed", apiH.Seed)
	api.Post("/audits/:id/scan", apiH.Scan)
	api.Get("/audits/:id/progress", apiH.Progress)
	api.Get("/audits/:id/mismatches", apiH.Mismatches)
	api.Get("/audits/:id/summary", apiH.Summary)
	api.Get("/audits/:id/items", apiH.Items)
	api.Get("/locations", apiH.ListLocations)
	api.Get("/locations/tree", apiH.LocationTree)
	api.Get("/locations/:id", apiH.GetLocation)
	api.Get("/locations/:id/assets", apiH.AssetsAtLocation)
	api.Get("/assets", apiH.SearchAssets)
	api.Get("/assets/:ref", apiH.GetAsset)
	api.Get("/categories", apiH.ListCategories)
	api.Get("/dashboard", apiH.GetDashboard)

	api.Get("/assignments", apiH.ListAssignments)
	api.Get("/assignments/overdue", apiH.OverdueAssignments)
	api.Get("/assignments/:id", apiH.GetAssignment)
	api.Post("/assignments", apiH.Checkout)
	api.Post("/assignments/:id/return", apiH.ReturnAssignment)

	api.Get("/tickets", apiH.ListTickets)
	api.Get("/tickets/top", apiH.TopTicketAssets)
	api.Get("/tickets/cost", apiH.TicketCost)
	api.Get("/tickets/month", apiH.TicketMonth)
	api.Get("/tickets/:id", apiH.GetTicket)
	api.Post("/tickets", apiH.OpenTicket)
	api.Patch("/tickets/:id", apiH.UpdateTicket)

	adminOnly := RequireAdmin(d.Auth)
	api.Post("/locations", adminOnly, apiH.CreateLocation)
	api.Patch("/locations/:id", adminOnly, apiH.UpdateLocation)
	api.Delete("/locations/:id", adminOnly, apiH.DeleteLocation)
	api.Post("/assets", adminOnly, apiH.CreateAsset)
	api.Patch("/assets/:ref", adminOnly, apiH.UpdateAsset)
	api.Delete("/assets/:ref", adminOnly, apiH.DeleteAsset)
	api.Post("/assets/:ref/move", adminOnly, apiH.MoveAsset)
	api.Post("/categories", adminOnly, apiH.CreateCategory)
	api.Patch("/categories/:id", adminOnly, apiH.UpdateCategory)
	api.Delete("/categories/:id", adminOnly, apiH.DeleteCategory)

	// ---------- Health & 404 ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Page not found")
	})
	return app
}
