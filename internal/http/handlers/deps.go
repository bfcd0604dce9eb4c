package handlers

import (
	"github.com/jmoiron/sqlx"

	"assettrack/internal/config"
	"assettrack/internal/repos"
	"assettrack/internal/services"
)

type Deps struct {
	Config  config.Config
	Auth    *services.AuthService
	Audits  *services.AuditService
	Catalog *services.CatalogService

	Assignments *services.AssignmentService
	Maintenance *services.MaintenanceService
	Dashboard   *services.DashboardService

	AuthHandler  *AuthHandler
	AuditHandler *AuditHandler
	AdminHandler *AdminHandler
	APIHandler   *APIHandler
}

// NewDeps wires services and handlers over one database. A nil clock means time.Now.
func NewDeps(db *sqlx.DB, cfg config.Config, now services.Clock) *Deps {
	auth := services.NewAuthService(repos.NewUserRepo(db))
	audits := services.NewAuditService(db, now)
	catalog := services.NewCatalogService(db, now)
	assignments := services.NewAssignmentService(db, now)
	maintenance := services.NewMaintenanceService(db, now)
	dashboard := services.NewDashboardService(db, now)

	return &Deps{
		Config:  cfg,
		Auth:    auth,
		Audits:  audits,
		Catalog: catalog,

		Assignments: assignments,
		Maintenance: maintenance,
		Dashboard:   dashboard,

		AuthHandler:  &AuthHandler{Auth: auth, SecureCookie: cfg.CookieSecure},
		AuditHandler: &AuditHandler{Audits: audits, Catalog: catalog},
		AdminHandler: &AdminHandler{Catalog: catalog},
		APIHandler: &APIHandler{
			Audits:      audits,
			Catalog:     catalog,
			Assignments: assignments,
			Maintenance: maintenance,
			Dashboard:   dashboard,
		},
	}
}
