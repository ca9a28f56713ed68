package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playcheck/playcheck/internal/diag"
)

// ErrNavigation marks a page that did not reach a quiescent load state
// within the navigation timeout. Fatal to the run.
var ErrNavigation = errors.New("navigation failure")

// KeyAction is the kind of synthetic key event to dispatch.
type KeyAction int

const (
	// KeyPress is a full down+up press.
	KeyPress KeyAction = iota
	// KeyHoldBegin pushes the key down and leaves it held.
	KeyHoldBegin
	// KeyHoldEnd releases a held key.
	KeyHoldEnd
)

// EventFunc receives one diagnostic event from the page. Handlers must not
// block: they run on the engine's event-delivery goroutine.
type EventFunc func(sev diag.Severity, src diag.Source, message string)

// Driver is one headless browser with a single page. One variant exists per
// automation engine; everything above this interface is engine-agnostic.
//
// Ordering contract: Listen must be called before Navigate, so that errors
// thrown during the page's earliest synchronous execution are captured.
type Driver interface {
	// Listen registers the diagnostic subscription for console errors and
	// uncaught exceptions. Must precede Navigate.
	Listen(fn EventFunc)

	// Navigate opens the URL and waits for a quiescent load state within the
	// driver's navigation timeout. Errors wrap ErrNavigation.
	Navigate(ctx context.Context, url string) error

	// Screenshot captures the current page rendering as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Key dispatches a synthetic key event. Keys are named by their DOM
	// KeyboardEvent code ("Space", "ArrowLeft", ...).
	Key(ctx context.Context, key string, action KeyAction) error

	// Evaluate runs an expression in page scope and returns its JSON value.
	// Best effort: callers treat errors as absence, not failures.
	Evaluate(ctx context.Context, expr string) (json.RawMessage, error)

	// Close releases the page and browser. Safe to call more than once.
	Close() error
}

// Options configures a driver instance.
type Options struct {
	Engine     string // "chromedp" (default) or "playwright"
	RemoteURL  string // attach to a running browser over CDP instead of launching
	Headless   bool
	Width      int
	Height     int
	NavTimeout time.Duration
}

const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"

	defaultNavTimeout = 15 * time.Second
	defaultWidth      = 1280
	defaultHeight     = 720
)

func (o *Options) applyDefaults() {
	if o.Engine == "" {
		o.Engine = EngineChromedp
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = defaultNavTimeout
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
}

// New launches the engine selected by opts and opens its single page.
func New(ctx context.Context, opts Options) (Driver, error) {
	opts.applyDefaults()
	switch opts.Engine {
	case EngineChromedp:
		return newChromedpDriver(ctx, opts)
	case EnginePlaywright:
		return newPlaywrightDriver(opts)
	default:
		return nil, fmt.Errorf("unknown engine %q", opts.Engine)
	}
}

// keyDef carries the CDP fields for one named key.
type keyDef struct {
	key     string
	code    string
	keyCode int64
	text    string
}

var keyDefs = map[string]keyDef{
	"Space":      {key: " ", code: "Space", keyCode: 32, text: " "},
	"Enter":      {key: "Enter", code: "Enter", keyCode: 13, text: "\r"},
	"ArrowLeft":  {key: "ArrowLeft", code: "ArrowLeft", keyCode: 37},
	"ArrowRight": {key: "ArrowRight", code: "ArrowRight", keyCode: 39},
	"ArrowUp":    {key: "ArrowUp", code: "ArrowUp", keyCode: 38},
	"ArrowDown":  {key: "ArrowDown", code: "ArrowDown", keyCode: 40},
	"KeyW":       {key: "w", code: "KeyW", keyCode: 87, text: "w"},
	"KeyA":       {key: "a", code: "KeyA", keyCode: 65, text: "a"},
	"KeyS":       {key: "s", code: "KeyS", keyCode: 83, text: "s"},
	"KeyD":       {key: "d", code: "KeyD", keyCode: 68, text: "d"},
}

func lookupKey(name string) (keyDef, error) {
	d, ok := keyDefs[name]
	if !ok {
		return keyDef{}, fmt.Errorf("unknown key %q", name)
	}
	return d, nil
}
