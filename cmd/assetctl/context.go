package main

import (
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"assettrack/internal/config"
	applog "assettrack/internal/log"
	"assettrack/internal/repos"
	"assettrack/internal/services"
)

type commandContext struct {
	dbFlag     *string
	configFlag *string
	jsonFlag   *bool

	storeOnce sync.Once
	db        *sqlx.DB
	audits    *services.AuditService
	catalog   *services.CatalogService
	loans     *services.AssignmentService
	tickets   *services.MaintenanceService
	dashboard *services.DashboardService
	storeErr  error
}

func newCommandContext(dbFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{dbFlag: dbFlag, configFlag: configFlag, jsonFlag: jsonFlag}
}

// quietLogs keeps stdout for command output; only warnings reach stderr.
func (c *commandContext) quietLogs(cmd *cobra.Command) {
	applog.SetOutput(cmd.ErrOrStderr())
	applog.Logger().SetLevel(logrus.WarnLevel)
}

func (c *commandContext) loadConfig() (config.Config, error) {
	var cfg config.Config
	if path := strings.TrimSpace(*c.configFlag); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Load()
	}
	if db := strings.TrimSpace(*c.dbFlag); db != "" {
		cfg.DBDSN = db
	}
	return cfg, nil
}

func (c *commandContext) ensureStore() error {
	c.storeOnce.Do(func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			c.storeErr = err
			return
		}
		if cfg.SeedDemo {
			if err := repos.SeedDemo(db); err != nil {
				_ = db.Close()
				c.storeErr = err
				return
			}
		}
		c.db = db
		c.audits = services.NewAuditService(db, time.Now)
		c.catalog = services.NewCatalogService(db, time.Now)
		c.loans = services.NewAssignmentService(db, time.Now)
		c.tickets = services.NewMaintenanceService(db, time.Now)
		c.dashboard = services.NewDashboardService(db, time.Now)
	})
	return c.storeErr
}

func (c *commandContext) auditService() (*services.AuditService, error) {
	if err := c.ensureStore(); err != nil {
		return nil, err
	}
	return c.audits, nil
}

func (c *commandContext) catalogService() (*services.CatalogService, error) {
	if err := c.ensureStore(); err != nil {
		return nil, err
	}
	return c.catalog, nil
}

func (c *commandContext) assignmentService() (*services.AssignmentService, error) {
	if err := c.ensureStore(); err != nil {
		return nil, err
	}
	return c.loans, nil
}

func (c *commandContext) maintenanceService() (*services.MaintenanceService, error) {
	if err := c.ensureStore(); err != nil {
		return nil, err
	}
	return c.tickets, nil
}

func (c *commandContext) dashboardService() (*services.DashboardService, error) {
	if err := c.ensureStore(); err != nil {
		return nil, err
	}
	return c.dashboard, nil
}

func (c *commandContext) close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *commandContext) wantJSON() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}
