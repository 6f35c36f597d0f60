package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/nestzone/nestwatch/cliparse"
)

func main() {
	// Load .env if present; real env always wins
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	// signal.Notify requires the channel to be buffered
	ctx, cancel := context.WithCancel(context.Background())
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
	}()

	if err := runCommand(ctx, cfg, logger); err != nil {
		logger.Error("command failed", "command", cfg.Command, "error", err)
		os.Exit(1)
	}
}

// newLogger picks a human-readable handler on a terminal and JSON
// otherwise, so piped output stays machine-parseable.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("NESTWATCH_DEBUG") != "" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
