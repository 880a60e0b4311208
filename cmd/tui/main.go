package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"example.com/wellness/internal/config"
	"example.com/wellness/internal/domain"
	"example.com/wellness/internal/kv"
	"example.com/wellness/internal/logging"
	"example.com/wellness/internal/screen"
	"example.com/wellness/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to a file.
	logFile, err := os.OpenFile("wellness-tui.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := logging.NewWithOutput(logFile, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store kv.Store
	store, err = kv.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("open slot store")
		fmt.Fprintf(os.Stderr, "open slot store: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close(store)
	if cfg.LocalUser != "" {
		store = kv.WithPrefix(store, kv.UserPrefix(cfg.LocalUser))
	}

	reporter := tui.NewReporter(16)
	screens := domain.NewScreens(store, logging.Component(logger, "tui"), screen.WithReporter(reporter))
	if err := tui.Run(ctx, screens, reporter); err != nil {
		logger.WithError(err).Error("tui exited")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
