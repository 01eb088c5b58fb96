// Package app provides the top-level application lifecycle for positionbot.
// It wires the snapshot backend, panel cache, and archiver together and runs
// one of the batch modes: manage, bootstrap, migrate, or propose.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkruijs/positionbot/internal/config"
)

// ProposeRequest carries the trade idea evaluated by the propose mode.
type ProposeRequest struct {
	Ticker string
	Entry  float64
	ATR    float64
	Target *float64
	Signal string
}

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	closers  []func()
	proposal *ProposeRequest
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// SetProposal attaches the trade idea for the propose mode.
func (a *App) SetProposal(req ProposeRequest) {
	a.proposal = &req
}

// Run wires all dependencies, dispatches to the configured mode, and returns
// when the mode's batch work is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("snapshot_backend", a.cfg.Snapshot.Backend),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "manage":
		return a.ManageMode(ctx, deps)
	case "bootstrap":
		return a.BootstrapMode(ctx, deps)
	case "migrate":
		return a.MigrateMode(ctx, deps)
	case "propose":
		if a.proposal == nil {
			return fmt.Errorf("app: propose mode needs a trade idea (-ticker, -entry, -atr)")
		}
		return a.ProposeMode(ctx, deps, *a.proposal)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
