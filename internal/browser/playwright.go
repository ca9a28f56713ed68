package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/playcheck/playcheck/internal/diag"
)

// playwrightDriver drives Chromium through the Playwright protocol. Selected
// with -engine playwright; useful where a managed browser install is wanted.
type playwrightDriver struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	page       playwright.Page
	navTimeout time.Duration
	closeOnce  sync.Once
	closeErr   error
}

func newPlaywrightDriver(opts Options) (*playwrightDriver, error) {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	return &playwrightDriver{
		pw:         pw,
		browser:    browser,
		page:       page,
		navTimeout: opts.NavTimeout,
	}, nil
}

func (d *playwrightDriver) Listen(fn EventFunc) {
	d.page.OnConsole(func(msg playwright.ConsoleMessage) {
		sev := diag.SeverityLog
		switch msg.Type() {
		case "error":
			sev = diag.SeverityError
		case "warning":
			sev = diag.SeverityWarning
		}
		fn(sev, diag.SourceConsole, msg.Text())
	})
	d.page.OnPageError(func(err error) {
		fn(diag.SeverityError, diag.SourceException, diag.Coerce(err.Error()))
	})
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(d.navTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: %s not quiescent within %s: %v", ErrNavigation, url, d.navTimeout, err)
	}
	return nil
}

func (d *playwrightDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (d *playwrightDriver) Key(ctx context.Context, key string, action KeyAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := lookupKey(key); err != nil {
		return err
	}

	// Playwright accepts KeyboardEvent codes directly.
	switch action {
	case KeyPress:
		return d.page.Keyboard().Press(key)
	case KeyHoldBegin:
		return d.page.Keyboard().Down(key)
	case KeyHoldEnd:
		return d.page.Keyboard().Up(key)
	default:
		return fmt.Errorf("unknown key action %d", action)
	}
}

func (d *playwrightDriver) Evaluate(ctx context.Context, expr string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := d.page.Evaluate(expr)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return json.RawMessage("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (d *playwrightDriver) Close() error {
	d.closeOnce.Do(func() {
		if err := d.page.Close(); err != nil {
			d.closeErr = err
		}
		if err := d.browser.Close(); err != nil && d.closeErr == nil {
			d.closeErr = err
		}
		if err := d.pw.Stop(); err != nil && d.closeErr == nil {
			d.closeErr = err
		}
	})
	return d.closeErr
}
