// Package config loads the client configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/itms/portal/internal/autosave"
	"github.com/itms/portal/internal/db"
	"github.com/itms/portal/internal/wizard"
)

// Environment overrides.
const (
	EnvConfig  = "PORTAL_CONFIG"
	EnvAPIBase = "PORTAL_API_BASE"
)

// Config holds every client setting.
type Config struct {
	APIBase          string        `yaml:"api_base" validate:"required,url"`
	Timeout          time.Duration `yaml:"timeout" validate:"gt=0"`
	RateLimitRPS     float64       `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst   int           `yaml:"rate_limit_burst" validate:"gte=1"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" validate:"gte=1s"`
	RedirectDelay    time.Duration `yaml:"redirect_delay" validate:"gte=0"`
	StateDB          string        `yaml:"state_db" validate:"required"`
	LogFile          string        `yaml:"log_file"`
	LogLevel         string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// ChecklistFile replaces the built-in checklist when set.
	ChecklistFile string `yaml:"checklist_file" validate:"omitempty,file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIBase:          "http://localhost:8080/api",
		Timeout:          30 * time.Second,
		RateLimitRPS:     10,
		RateLimitBurst:   5,
		AutosaveInterval: autosave.DefaultInterval,
		RedirectDelay:    wizard.DefaultRedirectDelay,
		StateDB:          db.DefaultDBPath(),
		LogFile:          DefaultLogPath(),
		LogLevel:         "info",
	}
}

// DefaultPath returns the config file looked up when PORTAL_CONFIG is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "portal", "config.yaml")
}

// DefaultLogPath returns the default log file location.
func DefaultLogPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "portal", "portal.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "portal", "portal.log")
}

// Load builds the configuration: defaults, then the file at path (or
// PORTAL_CONFIG, or DefaultPath), then environment overrides. A missing
// default file is not an error; a missing explicit one is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if v := os.Getenv(EnvAPIBase); v != "" {
		cfg.APIBase = v
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
