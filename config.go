package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playcheck/playcheck/internal/harness"
	"github.com/playcheck/playcheck/internal/input"
)

// cliConfig is the parsed invocation: the harness config plus CLI-only knobs.
type cliConfig struct {
	harness harness.Config
	verbose bool
}

// envOr reads a PLAYCHECK_* variable with a fallback.
func envOr(key, def string) string {
	if v := os.Getenv("PLAYCHECK_" + key); v != "" {
		return v
	}
	return def
}

// loadConfig parses flags and the optional positional base address.
// Defaults fall back to PLAYCHECK_* environment variables.
func loadConfig(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("playcheck", flag.ContinueOnError)

	var (
		dir          = fs.String("dir", envOr("DIR", "."), "artifact directory for the built-in static server")
		serve        = fs.String("serve", envOr("SERVE", ""), "dev-server command to spawn instead of the static server")
		readyPattern = fs.String("ready-pattern", envOr("READY_PATTERN", ""), "regexp marking the dev server's ready signal")
		serveURL     = fs.String("serve-url", envOr("SERVE_URL", ""), "known base address of the spawned dev server")
		out          = fs.String("out", envOr("OUT", "screenshots"), "snapshot output directory")
		engine       = fs.String("engine", envOr("ENGINE", "chromedp"), "automation engine: chromedp or playwright")
		remote       = fs.String("remote", envOr("REMOTE", ""), "attach to a running browser over this CDP websocket URL")
		headful      = fs.Bool("headful", false, "run the browser with a visible window")
		planPath     = fs.String("plan", envOr("PLAN", ""), "YAML input plan file")
		duration     = fs.Duration("duration", 0, "input window override")
		cadence      = fs.Duration("cadence", 0, "press cadence override")
		ignore       = fs.String("ignore", envOr("IGNORE", ""), "comma-separated extra ignore substrings")
		settle       = fs.Duration("settle", time.Second, "settle delay before the final snapshot")
		navTimeout   = fs.Duration("nav-timeout", 15*time.Second, "navigation timeout")
		startTimeout = fs.Duration("startup-timeout", 15*time.Second, "server startup timeout")
		verbose      = fs.Bool("v", false, "debug logging")
	)

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: playcheck [flags] [baseURL]\n\n")
		fmt.Fprintf(fs.Output(), "Inspects a generated browser artifact: loads it headless, drives it\n")
		fmt.Fprintf(fs.Output(), "with synthetic input, and reports pass/fail with screenshots.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("at most one base address argument, got %d", fs.NArg())
	}

	plan := input.DefaultPlan()
	if *planPath != "" {
		p, err := input.LoadPlan(*planPath)
		if err != nil {
			return nil, err
		}
		plan = p
	}
	if *duration > 0 {
		plan.Window = *duration
	}
	if *cadence > 0 {
		plan.PressEvery = *cadence
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	var rules []string
	for _, r := range strings.Split(*ignore, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rules = append(rules, r)
		}
	}

	return &cliConfig{
		verbose: *verbose,
		harness: harness.Config{
			BaseURL:        fs.Arg(0),
			ServeCmd:       *serve,
			ReadyPattern:   *readyPattern,
			ServeURL:       *serveURL,
			ArtifactDir:    *dir,
			OutDir:         *out,
			Engine:         *engine,
			RemoteURL:      *remote,
			Headless:       !*headful,
			Plan:           plan,
			IgnoreRules:    rules,
			StartupTimeout: *startTimeout,
			NavTimeout:     *navTimeout,
			SettleDelay:    *settle,
		},
	}, nil
}
