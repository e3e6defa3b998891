// Command portal is the terminal client for filing counter reports.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itms/portal/internal/api"
	"github.com/itms/portal/internal/app"
	"github.com/itms/portal/internal/auth"
	"github.com/itms/portal/internal/config"
	"github.com/itms/portal/internal/db"
	"github.com/itms/portal/internal/form"
	"github.com/itms/portal/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "config file (default $"+config.EnvConfig+" or the user config dir)")
	apiBase := flag.String("api", "", "portal API base URL, overrides the config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *apiBase != "" {
		cfg.APIBase = *apiBase
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Remembered credentials survive restarts; wizard selections do not.
	state, err := db.Open(cfg.StateDB)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer state.Close()
	scratch, err := db.Open(db.MemoryPath)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer scratch.Close()

	tokens, err := auth.NewTokenStore(state)
	if err != nil {
		return err
	}

	checklist := form.DefaultChecklist()
	if cfg.ChecklistFile != "" {
		if checklist, err = form.LoadChecklist(cfg.ChecklistFile); err != nil {
			return err
		}
	}

	client := api.New(cfg.APIBase, tokens,
		api.WithTimeout(cfg.Timeout),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithLogger(logger),
	)

	logger.Info("portal starting", "api", cfg.APIBase)
	m := app.New(app.Deps{
		Client:           client,
		Tokens:           tokens,
		Session:          session.NewStore(scratch),
		Checklist:        checklist,
		AutosaveInterval: cfg.AutosaveInterval,
		RedirectDelay:    cfg.RedirectDelay,
		Logger:           logger,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// openLogger logs to the configured file, since the terminal belongs to the UI.
func openLogger(cfg config.Config) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { f.Close() }, nil
}
