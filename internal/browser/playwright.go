package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/Raj-Taware/credit-scrape/internal/config"
)

// elementProbeTimeout bounds the enabled check of a located element.
const elementProbeTimeout = 500 * time.Millisecond

// PlaywrightLauncher starts headless Chromium sessions through playwright-go.
type PlaywrightLauncher struct {
	opts Options
}

// NewPlaywrightLauncher creates a launcher for the playwright engine.
func NewPlaywrightLauncher(opts Options) *PlaywrightLauncher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &PlaywrightLauncher{opts: opts}
}

// Install downloads the Playwright driver and the Chromium build it expects.
// It is a one-time setup step for hosts without a preinstalled browser.
func Install(opts Options) error {
	if err := applyBrowsersPath(opts.BrowsersPath); err != nil {
		return err
	}
	return playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	})
}

// Launch starts the Playwright driver, launches Chromium and opens one
// browser context with the configured user agent.
func (l *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := applyBrowsersPath(l.opts.BrowsersPath); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
	})
	if err != nil {
		_ = pw.Stop() //nolint:errcheck // Launch error is more relevant
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(l.opts.UserAgent),
	})
	if err != nil {
		_ = b.Close() //nolint:errcheck // NewContext error is more relevant
		_ = pw.Stop() //nolint:errcheck // NewContext error is more relevant
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	l.opts.Logger.Debug("browser session started",
		"engine", config.EnginePlaywright,
		"headless", l.opts.Headless,
	)

	return &playwrightSession{pw: pw, browser: b, context: bctx, logger: l.opts.Logger}, nil
}

// applyBrowsersPath exports the browser directory for the driver process,
// which reads it from its environment.
func applyBrowsersPath(path string) error {
	if path == "" || os.Getenv(config.EnvBrowsersPath) == path {
		return nil
	}
	return os.Setenv(config.EnvBrowsersPath, path)
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &playwrightPage{page: p}, nil
}

func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(
			s.context.Close(),
			s.browser.Close(),
			s.pw.Stop(),
		)
		s.logger.Debug("browser session closed", "error", s.closeErr)
	})
	return s.closeErr
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   millis(effectiveTimeout(ctx, timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Locator("body").InnerText()
}

func (p *playwrightPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) Locate(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	elements := make([]Element, n)
	for i := range n {
		elements[i] = &playwrightElement{loc: loc.Nth(i)}
	}
	return elements, nil
}

func (p *playwrightPage) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsVisible()
}

func (e *playwrightElement) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return e.loc.IsEnabled(playwright.LocatorIsEnabledOptions{
		Timeout: millis(effectiveTimeout(ctx, elementProbeTimeout)),
	})
}

func (e *playwrightElement) Click(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click(playwright.LocatorClickOptions{
		Timeout: millis(effectiveTimeout(ctx, timeout)),
	})
}

// millis converts d to the float milliseconds Playwright expects.
func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
