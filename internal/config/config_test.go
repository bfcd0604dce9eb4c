package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"assettrack/internal/config"
)

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assettrack.toml")
	want := config.Default()
	want.Port = "9090"
	want.DBDSN = "/var/lib/assettrack/data.db"
	want.SeedDemo = true
	data, err := toml.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg != want {
		t.Fatalf("got %+v want %+v", cfg, want)
	}
}

func TestLoadFileKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	if err := os.WriteFile(path, []byte("port = \"7000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.DBDSN != config.Default().DBDSN {
		t.Fatalf("db dsn should stay default, got %q", cfg.DBDSN)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assettrack.toml")
	if err := os.WriteFile(path, []byte("port = \"7000\"\nseed_demo = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir) // no stray .env from the package directory
	t.Setenv("ASSETTRACK_CONFIG", path)
	t.Setenv("PORT", "7100")
	t.Setenv("SEED_DEMO", "false")
	t.Setenv("DB_DSN", ":memory:")

	cfg := config.Load()
	if cfg.Port != "7100" {
		t.Fatalf("PORT env should win, got %q", cfg.Port)
	}
	if cfg.SeedDemo {
		t.Fatal("SEED_DEMO env should win over file")
	}
	if cfg.DBDSN != ":memory:" {
		t.Fatalf("DB_DSN: got %q", cfg.DBDSN)
	}
}

func TestLoadBadFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(path, []byte("port = = ="), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("ASSETTRACK_CONFIG", path)
	t.Setenv("PORT", "")

	cfg := config.Load()
	if cfg.Port != config.Default().Port {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
}
