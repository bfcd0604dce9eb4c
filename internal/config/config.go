package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	applog "assettrack/internal/log"
)

type Config struct {
	Port         string `toml:"port"`
	DBDSN        string `toml:"db_dsn"`
	LogFile      string `toml:"log_file"`
	TemplatesDir string `toml:"templates_dir"`
	StaticDir    string `toml:"static_dir"`
	SeedDemo     bool   `toml:"seed_demo"`
	CookieSecure bool   `toml:"cookie_secure"`
}

// DefaultPath is read when ASSETTRACK_CONFIG is unset and the file exists.
const DefaultPath = "assettrack.toml"

func Default() Config {
	return Config{
		Port:         "8080",
		DBDSN:        "assettrack.db", // sqlite file in project root
		LogFile:      "./assettrack.log",
		TemplatesDir: "./web/templates",
		StaticDir:    "./web/static",
	}
}

// Load builds the config from defaults, the optional TOML file, .env and the
// process environment, in that order of precedence (last wins).
func Load() Config {
	path := os.Getenv("ASSETTRACK_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	cfg, err := LoadFile(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			applog.Logger().WithError(err).WithField("path", path).Warn("config.file.ignored")
		}
		cfg = Default()
	}
	_ = godotenv.Load()
	applyEnv(&cfg)

	applog.Logger().WithFields(map[string]any{
		"port": cfg.Port, "db_dsn": cfg.DBDSN, "log_file": cfg.LogFile, "seed_demo": cfg.SeedDemo,
	}).Info("config.loaded")
	return cfg
}

// LoadFile reads a TOML file on top of Default. Environment is not applied.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.LogFile = v // empty disables the file sink
	}
	if v := os.Getenv("TEMPLATES_DIR"); v != "" {
		cfg.TemplatesDir = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v, ok := envBool("SEED_DEMO"); ok {
		cfg.SeedDemo = v
	}
	if v, ok := envBool("COOKIE_SECURE"); ok {
		cfg.CookieSecure = v
	}
}

func envBool(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		applog.Logger().WithField("key", key).WithField("value", raw).Warn("config.env.not_bool")
		return false, false
	}
	return b, true
}
