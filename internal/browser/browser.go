package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/config"
)

// ErrPageClosed is returned by operations on a closed page.
var ErrPageClosed = errors.New("page is closed")

// ErrNoDocument is returned when a page is read before a successful Goto.
var ErrNoDocument = errors.New("page has no document loaded")

// Launcher starts browser sessions.
type Launcher interface {
	// Launch starts a session. The caller must Close it.
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser with one browsing context.
type Session interface {
	// NewPage opens a new tab in the session's context.
	NewPage(ctx context.Context) (Page, error)

	// Close closes every page and shuts the browser down.
	Close() error
}

// Page is one browser tab.
type Page interface {
	// Goto navigates to url and waits for the DOM to be ready.
	Goto(ctx context.Context, url string, timeout time.Duration) error

	// BodyText returns the rendered text of the document body.
	BodyText(ctx context.Context) (string, error)

	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)

	// Locate returns every element matching selector, in document order.
	Locate(ctx context.Context, selector string) ([]Element, error)

	// PressKey sends a key press to the page, e.g. "Escape".
	PressKey(ctx context.Context, key string) error

	// Close closes the tab.
	Close() error
}

// Element is one element matched by Page.Locate.
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Click(ctx context.Context, timeout time.Duration) error
}

// Options configures both engines.
type Options struct {
	// Headless runs Chromium without a window.
	Headless bool

	// UserAgent is sent with every request.
	UserAgent string

	// BrowsersPath is the Playwright browser install directory.
	BrowsersPath string

	// Logger receives engine diagnostics.
	Logger *slog.Logger
}

// OptionsFromConfig derives engine options from the application config.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Headless:     cfg.Headless,
		UserAgent:    cfg.UserAgent,
		BrowsersPath: cfg.BrowsersPath,
		Logger:       logger,
	}
}

// NewLauncher returns the launcher of the engine selected in cfg.
func NewLauncher(cfg *config.Config, logger *slog.Logger) Launcher {
	opts := OptionsFromConfig(cfg, logger)
	if cfg.Engine == config.EngineStatic {
		return NewStaticLauncher(opts)
	}
	return NewPlaywrightLauncher(opts)
}

// effectiveTimeout shortens d to the time left before ctx's deadline.
// Playwright calls are not context aware, so this is how cancellation
// reaches them.
func effectiveTimeout(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			if left <= 0 {
				return time.Millisecond
			}
			return left
		}
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
