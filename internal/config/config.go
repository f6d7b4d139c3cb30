package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const (
	defaultEnv           = "dev"
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultMigrationsDir = "migrations"
	defaultLowStock      = 5
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string  `toml:"env"`
	AdminEmail      string  `toml:"admin_email"`
	AdminPassword   string  `toml:"admin_password"`
	SessionSecret   string  `toml:"session_secret"`
	DBPath          string  `toml:"db_path"`
	Port            string  `toml:"port"`
	LogLevel        string  `toml:"log_level"`
	LogFormat       string  `toml:"log_format"`
	SupabaseDBURL   string  `toml:"supabase_db_url"`
	MigrationsDir   string  `toml:"migrations_dir"`
	// LowStockDefault is the minimum stock assumed for products without one.
	// An explicit 0 disables it.
	LowStockDefault float64 `toml:"low_stock_default"`

	// Warnings lists configuration problems that did not stop loading.
	Warnings []string `toml:"-"`

	lowStockSet bool
}

// ErrInsecure is returned by Validate for settings unsafe outside development.
var ErrInsecure = errors.New("insecure configuration")

// Validate reports settings the server must not start with. Missing secrets
// only produce warnings in development.
func (c Config) Validate() error {
	if !c.IsDev() && c.SessionSecret == "" {
		return fmt.Errorf("%w: SESSION_SECRET is required when APP_ENV=%s", ErrInsecure, c.Env)
	}
	return nil
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		Env:           os.Getenv("APP_ENV"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogFormat:     os.Getenv("LOG_FORMAT"),
		SupabaseDBURL: os.Getenv("SUPABASE_DB_URL"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	if raw := os.Getenv("LOW_STOCK_DEFAULT"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("LOW_STOCK_DEFAULT=%q is not a non-negative number, using %d", raw, defaultLowStock))
		} else {
			cfg.LowStockDefault = v
			cfg.lowStockSet = true
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			cfg.Warnings = append(cfg.Warnings, err.Error())
		}
	}

	cfg.applyDefaults()

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}

	return cfg
}

// mergeFile fills fields the environment left empty from a TOML file.
func (c *Config) mergeFile(path string) error {
	var file Config
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Env, file.Env)
	fill(&c.AdminEmail, file.AdminEmail)
	fill(&c.AdminPassword, file.AdminPassword)
	fill(&c.SessionSecret, file.SessionSecret)
	fill(&c.DBPath, file.DBPath)
	fill(&c.Port, file.Port)
	fill(&c.LogLevel, file.LogLevel)
	fill(&c.LogFormat, file.LogFormat)
	fill(&c.SupabaseDBURL, file.SupabaseDBURL)
	fill(&c.MigrationsDir, file.MigrationsDir)
	if !c.lowStockSet && md.IsDefined("low_stock_default") {
		if file.LowStockDefault < 0 {
			return fmt.Errorf("low_stock_default in %s must not be negative", path)
		}
		c.LowStockDefault = file.LowStockDefault
		c.lowStockSet = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
		if c.IsDev() {
			c.LogFormat = "console"
		}
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = defaultMigrationsDir
	}
	if !c.lowStockSet {
		c.LowStockDefault = defaultLowStock
	}
}
