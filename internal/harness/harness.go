package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playcheck/playcheck/internal/browser"
	"github.com/playcheck/playcheck/internal/diag"
	"github.com/playcheck/playcheck/internal/input"
	"github.com/playcheck/playcheck/internal/probe"
	"github.com/playcheck/playcheck/internal/report"
	"github.com/playcheck/playcheck/internal/session"
	"github.com/playcheck/playcheck/internal/snapshot"
)

// Config is one run's configuration, assembled by the CLI.
type Config struct {
	// Exactly one artifact source: an external address, a dev-server command,
	// or a directory for the built-in static server.
	BaseURL      string
	ServeCmd     string
	ReadyPattern string
	ServeURL     string
	ArtifactDir  string

	OutDir      string
	Engine      string
	RemoteURL   string
	Headless    bool
	Plan        input.Plan
	IgnoreRules []string
	Globals     []string

	StartupTimeout time.Duration
	NavTimeout     time.Duration
	SettleDelay    time.Duration

	// Seams for tests; nil means the real implementations.
	newDriver  func(ctx context.Context, opts browser.Options) (browser.Driver, error)
	newSession func(ctx context.Context, cfg *Config) (*session.Session, error)
}

func (c *Config) applyDefaults() {
	if c.ArtifactDir == "" {
		c.ArtifactDir = "."
	}
	if c.OutDir == "" {
		c.OutDir = "screenshots"
	}
	if c.Plan.JumpKey == "" {
		c.Plan = input.DefaultPlan()
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 15 * time.Second
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 15 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = time.Second
	}
	if c.newDriver == nil {
		c.newDriver = browser.New
	}
	if c.newSession == nil {
		c.newSession = startSession
	}
}

func startSession(ctx context.Context, cfg *Config) (*session.Session, error) {
	opts := session.Options{Timeout: cfg.StartupTimeout}
	switch {
	case cfg.BaseURL != "":
		return session.External(cfg.BaseURL), nil
	case cfg.ServeCmd != "":
		return session.Command(ctx, cfg.ServeCmd, session.CommandOptions{
			Options:      opts,
			ReadyPattern: cfg.ReadyPattern,
			URL:          cfg.ServeURL,
		})
	default:
		return session.Static(ctx, cfg.ArtifactDir, opts)
	}
}

// Run drives one full inspection: session up, browser up, diagnostics
// subscribed before navigation, checkpointed snapshots around a scripted
// input window, state extraction, report. Session and browser teardown is
// deferred so it happens on every exit path, including fatal aborts.
func Run(ctx context.Context, cfg Config) (*report.Report, error) {
	cfg.applyDefaults()
	started := time.Now()

	sess, err := cfg.newSession(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	defer sess.Stop()
	slog.Info("session ready", "url", sess.BaseURL)

	drv, err := cfg.newDriver(ctx, browser.Options{
		Engine:     cfg.Engine,
		RemoteURL:  cfg.RemoteURL,
		Headless:   cfg.Headless,
		NavTimeout: cfg.NavTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer drv.Close()

	col := diag.NewCollector(append(append([]string{}, diag.DefaultIgnoreRules...), cfg.IgnoreRules...))

	// Subscribe before navigation so errors thrown during the artifact's
	// earliest synchronous execution are not missed.
	drv.Listen(col.Record)

	if err := drv.Navigate(ctx, sess.BaseURL); err != nil {
		return nil, err
	}
	slog.Info("page loaded", "url", sess.BaseURL)

	caps, err := snapshot.NewCapturer(cfg.OutDir, col)
	if err != nil {
		return nil, err
	}

	_ = caps.Capture(ctx, drv, "initial")

	// Nudge the artifact out of any start screen before the input window.
	if err := drv.Key(ctx, cfg.Plan.JumpKey, browser.KeyPress); err != nil {
		slog.Warn("start key press failed", "err", err)
	}
	if err := pause(ctx, 500*time.Millisecond); err != nil {
		return nil, err
	}
	_ = caps.Capture(ctx, drv, "after-start")

	stats, err := input.NewSimulator(cfg.Plan).Run(ctx, drv, col.HasBlocking)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// A failed dispatch should not mask what the page already told us.
		slog.Warn("input simulation ended early", "err", err)
		col.Record(diag.SeverityWarning, diag.SourceConsole,
			fmt.Sprintf("input simulation ended early: %v", err))
	}
	_ = caps.Capture(ctx, drv, "after-gameplay")

	if err := pause(ctx, cfg.SettleDelay); err != nil {
		return nil, err
	}
	_ = caps.Capture(ctx, drv, "final")

	state := probe.NewExtractor(cfg.Globals).Extract(ctx, drv)

	return report.New(col, caps.Taken(), state, sess.State(), stats, started), nil
}

func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
