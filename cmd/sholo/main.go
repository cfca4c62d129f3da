// Command sholo rotates a rendered object with hand swipes and head movement
// tracked by the webcam.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ayusman/sholo/internal/app"
	"github.com/ayusman/sholo/internal/config"
	"github.com/ayusman/sholo/internal/log"
)

func init() {
	// HighGUI windows and the system tray must be driven from the main OS thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		log.Error("sholo failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Init(cfg.LogLevel)

	a, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serve := a.Run
	if cfg.Tray.Enabled {
		serve = func(ctx context.Context) error { return runWithTray(ctx, a) }
	}
	if err := serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
