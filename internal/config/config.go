package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type UserConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"passwordHash"` // bcrypt hash
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type BackendConfig struct {
	Driver  string `yaml:"driver"` // memory | postgres
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

type AuthConfig struct {
	Secret              string        `yaml:"secret"`
	SessionTTL          time.Duration `yaml:"sessionTTL"`
	RequireConfirmation bool          `yaml:"requireConfirmation"`
	BaseURL             string        `yaml:"baseURL"` // used for confirmation links
	Users               []UserConfig  `yaml:"users"`
}

type UIConfig struct {
	AuthMessageTTL time.Duration `yaml:"authMessageTTL"`
	TaskMessageTTL time.Duration `yaml:"taskMessageTTL"`
	Timezone       string        `yaml:"timezone"`
}

type Config struct {
	Listen  string        `yaml:"listen"`
	Logging LoggingConfig `yaml:"logging"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	UI      UIConfig      `yaml:"ui"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Backend: BackendConfig{Driver: DriverMemory, Migrate: true},
		Auth: AuthConfig{
			SessionTTL:          24 * time.Hour,
			RequireConfirmation: true,
			BaseURL:             "http://localhost:8080",
			Users:               []UserConfig{},
		},
		UI: UIConfig{
			AuthMessageTTL: 5 * time.Second,
			TaskMessageTTL: 3 * time.Second,
			Timezone:       "UTC",
		},
	}
}

// Load reads an optional YAML file and a .env file from the working directory,
// then applies TODO_* environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Backend.DSN == "" {
			return errors.New("backend.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown backend driver %q", c.Backend.Driver)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("ui.timezone: %w", err)
	}
	return nil
}

// Location resolves ui.timezone; an empty value means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.UI.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.UI.Timezone)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TODO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TODO_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TODO_BACKEND"); v != "" {
		cfg.Backend.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("TODO_DATABASE_URL"); v != "" {
		cfg.Backend.DSN = v
	}
	if v := os.Getenv("TODO_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("TODO_REQUIRE_CONFIRMATION"); v != "" {
		cfg.Auth.RequireConfirmation = parseBool(v, cfg.Auth.RequireConfirmation)
	}
	if v := os.Getenv("TODO_BASE_URL"); v != "" {
		cfg.Auth.BaseURL = v
	}
	if v := os.Getenv("TODO_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Auth.SessionTTL = d
		}
	}
	if v := os.Getenv("TODO_TIMEZONE"); v != "" {
		cfg.UI.Timezone = v
	}
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return def
}
