package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playcheck/playcheck/internal/browser"
	"github.com/playcheck/playcheck/internal/diag"
)

// Snapshot records one captured checkpoint.
type Snapshot struct {
	Label    string    `json:"label"`
	Path     string    `json:"path"`
	Captured time.Time `json:"captured"`
}

// Capturer writes labeled page captures to a deterministic path sequence
// (t0_<label>.png, t1_<label>.png, ...). Labels are write-once per run.
// Capture failures are recorded as warnings on the collector, never as run
// failures: a missing frame must not mask real content bugs.
type Capturer struct {
	dir       string
	collector *diag.Collector

	mu    sync.Mutex
	used  map[string]bool
	taken []Snapshot
}

// NewCapturer prepares the output directory.
func NewCapturer(dir string, collector *diag.Collector) (*Capturer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Capturer{
		dir:       dir,
		collector: collector,
		used:      map[string]bool{},
	}, nil
}

// PathFor returns the deterministic file path for the idx-th checkpoint.
func PathFor(dir string, idx int, label string) string {
	name := fmt.Sprintf("t%d_%s.png", idx, strings.ReplaceAll(label, "-", "_"))
	return filepath.Join(dir, name)
}

// Capture takes a snapshot at the named checkpoint. Reusing a label is a
// programming error; everything else that goes wrong degrades to a warning.
func (c *Capturer) Capture(ctx context.Context, drv browser.Driver, label string) error {
	c.mu.Lock()
	if c.used[label] {
		c.mu.Unlock()
		return fmt.Errorf("checkpoint %q already captured", label)
	}
	c.used[label] = true
	idx := len(c.used) - 1
	c.mu.Unlock()

	path := PathFor(c.dir, idx, label)

	buf, err := drv.Screenshot(ctx)
	if err != nil {
		c.warn(label, err)
		return nil
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		c.warn(label, err)
		return nil
	}

	c.mu.Lock()
	c.taken = append(c.taken, Snapshot{Label: label, Path: path, Captured: time.Now()})
	c.mu.Unlock()
	slog.Debug("snapshot captured", "label", label, "path", path)
	return nil
}

func (c *Capturer) warn(label string, err error) {
	slog.Warn("snapshot failed", "label", label, "err", err)
	if c.collector != nil {
		c.collector.Record(diag.SeverityWarning, diag.SourceConsole,
			fmt.Sprintf("snapshot %q could not be captured: %v", label, err))
	}
}

// Taken returns the snapshots captured so far, in capture order.
func (c *Capturer) Taken() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, len(c.taken))
	copy(out, c.taken)
	return out
}
