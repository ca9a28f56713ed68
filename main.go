package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/playcheck/playcheck/internal/harness"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		slog.Error("invalid invocation", "err", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := harness.Run(ctx, cfg.harness)
	if err != nil {
		// Fatal abort: startup or navigation failure, before a verdict exists.
		slog.Error("inspection aborted", "err", err)
		os.Exit(1)
	}

	rep.Render(os.Stdout)
	os.Exit(rep.ExitCode())
}
