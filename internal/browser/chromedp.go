package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/playcheck/playcheck/internal/diag"
)

// chromedpDriver drives a headless Chrome over CDP. Default engine.
type chromedpDriver struct {
	ctx        context.Context
	cancelTask context.CancelFunc
	cancelAl   context.CancelFunc
	navTimeout time.Duration
	closeOnce  sync.Once
	closeErr   error
}

func newChromedpDriver(ctx context.Context, opts Options) (*chromedpDriver, error) {
	var allocCtx context.Context
	var cancelAl context.CancelFunc

	if opts.RemoteURL != "" {
		allocCtx, cancelAl = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.WindowSize(opts.Width, opts.Height),
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("mute-audio", true),
		)
		allocCtx, cancelAl = chromedp.NewExecAllocator(ctx, execOpts...)
	}

	taskCtx, cancelTask := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	// Start the browser and open the page now, so listeners registered via
	// Listen are attached to a live target before any navigation.
	if err := chromedp.Run(taskCtx); err != nil {
		cancelTask()
		cancelAl()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &chromedpDriver{
		ctx:        taskCtx,
		cancelTask: cancelTask,
		cancelAl:   cancelAl,
		navTimeout: opts.NavTimeout,
	}, nil
}

func (d *chromedpDriver) Listen(fn EventFunc) {
	chromedp.ListenTarget(d.ctx, func(ev any) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			sev := diag.SeverityLog
			switch ev.Type {
			case runtime.APITypeError:
				sev = diag.SeverityError
			case runtime.APITypeWarning:
				sev = diag.SeverityWarning
			}
			fn(sev, diag.SourceConsole, consoleMessage(ev.Args))
		case *runtime.EventExceptionThrown:
			fn(diag.SeverityError, diag.SourceException, exceptionMessage(ev.ExceptionDetails))
		}
	})
}

// consoleMessage joins console arguments into one best-effort string.
// Remote objects without a serialized value fall back to their description.
func consoleMessage(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			parts = append(parts, diag.Coerce([]byte(arg.Value)))
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		} else {
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionMessage(ed *runtime.ExceptionDetails) string {
	if ed == nil {
		return "uncaught exception"
	}
	if ed.Exception != nil && ed.Exception.Description != "" {
		return ed.Exception.Description
	}
	if ed.Text != "" {
		return ed.Text
	}
	return "uncaught exception"
}

func (d *chromedpDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(d.ctx, d.navTimeout)
	defer cancel()

	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %s not quiescent within %s: %v", ErrNavigation, url, d.navTimeout, err)
	}
	return nil
}

func (d *chromedpDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(tctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (d *chromedpDriver) Key(ctx context.Context, key string, action KeyAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	def, err := lookupKey(key)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	switch action {
	case KeyPress:
		if err := chromedp.Run(tctx, keyEvent(def, input.KeyDown)); err != nil {
			return err
		}
		return chromedp.Run(tctx, keyEvent(def, input.KeyUp))
	case KeyHoldBegin:
		return chromedp.Run(tctx, keyEvent(def, input.KeyDown))
	case KeyHoldEnd:
		return chromedp.Run(tctx, keyEvent(def, input.KeyUp))
	default:
		return fmt.Errorf("unknown key action %d", action)
	}
}

func keyEvent(def keyDef, kind input.KeyType) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		p := input.DispatchKeyEvent(kind).
			WithKey(def.key).
			WithCode(def.code).
			WithWindowsVirtualKeyCode(def.keyCode).
			WithNativeVirtualKeyCode(def.keyCode)
		if kind == input.KeyDown && def.text != "" {
			p = p.WithText(def.text)
		}
		return p.Do(ctx)
	})
}

func (d *chromedpDriver) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()

	var raw json.RawMessage
	if err := chromedp.Run(tctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return nil, err
	}
	return raw, nil
}

func (d *chromedpDriver) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = chromedp.Cancel(d.ctx)
		d.cancelTask()
		d.cancelAl()
	})
	return d.closeErr
}
