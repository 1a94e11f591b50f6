// Package app provides the top-level application lifecycle. It wires the
// concrete dependencies (chain client, Redis, optional Postgres and S3) and
// runs the configured operating mode: one scanner, the fleet supervisor, or
// a read-only stream tail.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rosegoldcruz/atom-sub001/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the configured mode, and blocks until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// Mode is lower-cased by Config.Validate before Run is reached.
	switch a.cfg.Mode {
	case "scan":
		return a.ScanMode(ctx, deps)
	case "supervise":
		return a.SuperviseMode(ctx, deps)
	case "tail":
		return a.TailMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
