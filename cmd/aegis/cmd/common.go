package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aegis-policy/aegis/internal/config"
	"github.com/aegis-policy/aegis/internal/service"
)

// newLogger builds the shared *slog.Logger every subcommand logs through,
// matching SPEC_FULL.md §2.1's "single *slog.Logger... threaded explicitly
// through constructors" rule.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadRuntime loads config, opens the configured rule/doc stores, and
// builds a service.Runtime wrapping a fully-populated engine.Policy. The
// returned stores must be closed by the caller once the command is done.
func loadRuntime() (*service.Runtime, *service.Stores, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	stores, err := service.OpenStores(cfg)
	if err != nil {
		return nil, nil, err
	}

	// An MCP-backed entrypoint resolver is wired in serve.go, where a
	// connection can be kept open for the life of the process; one-shot
	// CLI commands evaluate against builtins and stored rules only.
	p, err := service.LoadPolicy(stores, logger)
	if err != nil {
		stores.Close()
		return nil, nil, err
	}
	return service.NewRuntime(p, nil, logger), stores, nil
}
