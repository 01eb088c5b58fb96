// Command positionbot is the entry point for the position tracker. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs the configured batch mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkruijs/positionbot/internal/app"
	"github.com/mkruijs/positionbot/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (manage|bootstrap|migrate|propose)")

	// Propose-mode flags: the trade idea under evaluation.
	ticker := flag.String("ticker", "", "ticker of the prospective trade (propose mode)")
	entry := flag.Float64("entry", 0, "entry price of the prospective trade (propose mode)")
	atr := flag.Float64("atr", 0, "ATR of the prospective trade (propose mode)")
	target := flag.Float64("target", 0, "optional price target (propose mode)")
	signalName := flag.String("signal", "", "signal name behind the trade idea (propose mode)")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("positionbot starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	if cfg.Mode == "propose" {
		req := app.ProposeRequest{
			Ticker: *ticker,
			Entry:  *entry,
			ATR:    *atr,
			Signal: *signalName,
		}
		if *target > 0 {
			t := *target
			req.Target = &t
		}
		application.SetProposal(req)
	}

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
		} else {
			logger.Error("exited with error", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("positionbot stopped")
}
