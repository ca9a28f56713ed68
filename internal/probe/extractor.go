package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/playcheck/playcheck/internal/browser"
)

// Result is the first exposed page state found, if any.
type Result struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// DefaultGlobals are the well-known names generated artifacts tend to expose.
// Tried in order; first structurally valid value wins.
var DefaultGlobals = []string{"score", "gameState", "game", "state", "player"}

// Extractor reads optional state the artifact chooses to expose globally.
// Absence is a normal outcome, never an error: a run is not failed because
// the page kept its state to itself.
type Extractor struct {
	globals []string
}

func NewExtractor(globals []string) *Extractor {
	if len(globals) == 0 {
		globals = DefaultGlobals
	}
	return &Extractor{globals: globals}
}

// Extract probes each global in order and returns the first hit, or nil.
func (e *Extractor) Extract(ctx context.Context, drv browser.Driver) *Result {
	for _, name := range e.globals {
		expr := fmt.Sprintf(
			`(() => { try { const v = window[%q]; return v === undefined ? null : v; } catch (e) { return null; } })()`,
			name)
		raw, err := drv.Evaluate(ctx, expr)
		if err != nil {
			slog.Debug("state probe failed", "name", name, "err", err)
			continue
		}
		if !valid(raw) {
			continue
		}
		slog.Debug("state extracted", "name", name)
		return &Result{Name: name, Value: raw}
	}
	return nil
}

// valid rejects null, undefined, and empty payloads. Functions serialize to
// empty objects over CDP; treat those as absent too.
func valid(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return false
	case bytes.Equal(trimmed, []byte("null")):
		return false
	case bytes.Equal(trimmed, []byte("undefined")):
		return false
	case bytes.Equal(trimmed, []byte("{}")):
		return false
	}
	return json.Valid(trimmed)
}
