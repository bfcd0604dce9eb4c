package repos

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "assettrack/internal/log"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	memory := strings.Contains(dsn, ":memory:")
	if !memory && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if memory {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Locations (parent_id forms a tree, cycles are not checked)
CREATE TABLE IF NOT EXISTS locations(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  parent_id TEXT,
  notes TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_locations_parent ON locations(parent_id);

-- Assets
CREATE TABLE IF NOT EXISTS assets(
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
  location_id TEXT REFERENCES locations(id) ON DELETE SET NULL,
  status TEXT NOT NULL DEFAULT 'active'
    CHECK (status IN ('active','inactive','lost','retired','maintenance')),
  serial_no TEXT,
  notes TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category_id);
CREATE INDEX IF NOT EXISTS idx_assets_location ON assets(location_id);

-- Audits
CREATE TABLE IF NOT EXISTS audits(
  id TEXT PRIMARY KEY,
  location_id TEXT REFERENCES locations(id) ON DELETE SET NULL,
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft'
    CHECK (status IN ('draft','in_progress','finalized')),
  started_at TEXT,
  finalized_at TEXT,
  notes TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audits_location ON audits(location_id);
CREATE INDEX IF NOT EXISTS idx_audits_status   ON audits(status);

-- Audit items: one row per (audit, asset)
CREATE TABLE IF NOT EXISTS audit_items(
  id TEXT PRIMARY KEY,
  audit_id TEXT NOT NULL REFERENCES audits(id) ON DELETE CASCADE,
  asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
  found INTEGER NOT NULL DEFAULT 0,
  found_location_id TEXT REFERENCES locations(id) ON DELETE SET NULL,
  condition TEXT,
  notes TEXT,
  scanned_at TEXT,
  CHECK ((found = 1) = (scanned_at IS NOT NULL))
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_audit_items_audit_asset ON audit_items(audit_id, asset_id);
CREATE INDEX IF NOT EXISTS idx_audit_items_asset ON audit_items(asset_id);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Assignments (asset checkout/return); one outstanding row per asset
CREATE TABLE IF NOT EXISTS assignments(
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  assigned_at TEXT NOT NULL,
  due_at TEXT,
  returned_at TEXT,
  condition_out TEXT,
  condition_in TEXT,
  notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_assignments_user ON assignments(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_assignments_outstanding
  ON assignments(asset_id) WHERE returned_at IS NULL;

-- Maintenance tickets
CREATE TABLE IF NOT EXISTS maintenance_tickets(
  id TEXT PRIMARY KEY,
  asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'open'
    CHECK (status IN ('open','in_progress','done','canceled')),
  opened_at TEXT NOT NULL,
  closed_at TEXT,
  cost_cents INTEGER NOT NULL DEFAULT 0 CHECK (cost_cents >= 0),
  notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_tickets_asset  ON maintenance_tickets(asset_id);
CREATE INDEX IF NOT EXISTS idx_tickets_opened ON maintenance_tickets(opened_at);
`
	_, err := db.Exec(schema)
	return err
}

// SeedDemo inserts a small warehouse/office fixture if no locations exist yet.
func SeedDemo(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM locations`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Logger().Info("seed.demo")

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO categories(id,name,description) VALUES
	  ('laptops','Laptops','Portable computers'),
	  ('monitors','Monitors',NULL),
	  ('furniture','Furniture','Desks, chairs, cabinets')`)

	tx.MustExec(`INSERT INTO locations(id,name,parent_id,notes,created_at,updated_at) VALUES
	  ('hq','Head Office',NULL,NULL,strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	  ('warehouse','Warehouse',NULL,'Loading bay B',strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	  ('hq-floor2','HQ Floor 2','hq',NULL,strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now'))`)

	tx.MustExec(`INSERT INTO assets(id,code,name,category_id,location_id,status,serial_no,created_at,updated_at) VALUES
	  ('lt-001','LT-001','ThinkPad T14','laptops','hq-floor2','active','PF-3KQ91',strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	  ('lt-002','LT-002','MacBook Air','laptops','hq-floor2','active','C02FX1',strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	  ('mn-001','MN-001','Dell U2720Q','monitors','warehouse','active',NULL,strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	  ('fn-001','FN-001','Standing desk','furniture','warehouse','active',NULL,strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now'))`)

	tx.MustExec(`INSERT INTO assignments(id,asset_id,user_id,assigned_at,due_at,condition_out) VALUES
	  ('as-demo','lt-002','u-auditor',strftime('%Y-%m-%dT%H:%M:%fZ','now'),strftime('%Y-%m-%dT%H:%M:%fZ','now','+14 days'),'good')`)

	tx.MustExec(`INSERT INTO maintenance_tickets(id,asset_id,title,status,opened_at,cost_cents) VALUES
	  ('mt-demo','fn-001','Motor squeaks when raising','open',strftime('%Y-%m-%dT%H:%M:%fZ','now'),0)`)

	return tx.Commit()
}

// seedUsers ensures one ADMIN and one auditor exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}, err
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, row := range [][4]string{
		{"u-admin", "admin@assettrack.test", "Admin", "ADMIN"},
		{"u-auditor", "auditor@assettrack.test", "Auditor", "USER"},
	} {
		x, err := mk(row[0], row[1], row[2], row[3], "Passw0rd!")
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
