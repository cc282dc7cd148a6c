package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/Raj-Taware/credit-scrape/internal/extract"
)

// ErrNotInteractive is returned when clicking an element of a static page.
var ErrNotInteractive = errors.New("static engine cannot click")

// maxStaticBodySize caps the bytes read from one static page. Larger pages
// fail to load with resty.ErrResponseBodyTooLarge.
const maxStaticBodySize = 10 * 1024 * 1024

// StaticLauncher fetches pages over plain HTTP. It never executes scripts.
type StaticLauncher struct {
	opts   Options
	client *resty.Client
}

// NewStaticLauncher creates a launcher for the static engine.
func NewStaticLauncher(opts Options) *StaticLauncher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	client := resty.New().
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetResponseBodyLimit(maxStaticBodySize)
	return &StaticLauncher{opts: opts, client: client}
}

// Launch returns a session sharing the launcher's HTTP client.
func (l *StaticLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticSession{client: l.client, logger: l.opts.Logger}, nil
}

type staticSession struct {
	client *resty.Client
	logger *slog.Logger
}

func (s *staticSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticPage{client: s.client, logger: s.logger}, nil
}

func (s *staticSession) Close() error {
	return nil
}

type staticPage struct {
	client *resty.Client
	logger *slog.Logger

	mu     sync.Mutex
	url    string
	html   string
	doc    *goquery.Document
	closed bool
}

func (p *staticPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPageClosed
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.R().SetContext(reqCtx).Get(url)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("navigation to %s failed: HTTP %d", url, resp.StatusCode())
	}

	body := resp.Body()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", url, err)
	}

	final := url
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		final = resp.RawResponse.Request.URL.String()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = final
	p.html = string(body)
	p.doc = doc

	p.logger.Debug("static page loaded", "url", final, "bytes", len(body))
	return nil
}

func (p *staticPage) loaded() (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", "", ErrPageClosed
	}
	if p.doc == nil {
		return "", "", ErrNoDocument
	}
	return p.url, p.html, nil
}

func (p *staticPage) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	url, html, err := p.loaded()
	if err != nil {
		return "", err
	}
	parser, err := extract.NewParser(url)
	if err != nil {
		return "", err
	}
	result, err := parser.Parse(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (p *staticPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, html, err := p.loaded()
	return html, err
}

// Locate matches CSS selectors against the fetched document. Playwright-only
// selectors (text=, :has-text) match nothing. Matches are never visible:
// without scripts nothing on the page reacts to a click.
func (p *staticPage) Locate(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPageClosed
	}
	if p.doc == nil {
		return nil, ErrNoDocument
	}
	if strings.HasPrefix(selector, "text=") {
		return nil, nil
	}

	n := p.doc.Find(selector).Length()

	elements := make([]Element, n)
	for i := range elements {
		elements[i] = staticElement{}
	}
	return elements, nil
}

func (p *staticPage) PressKey(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := p.loaded()
	return err
}

func (p *staticPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.doc = nil
	p.html = ""
	return nil
}

// staticElement is an element of a page without scripts.
type staticElement struct{}

func (staticElement) Visible(context.Context) (bool, error) { return false, nil }
func (staticElement) Enabled(context.Context) (bool, error) { return false, nil }

func (staticElement) Click(context.Context, time.Duration) error {
	return ErrNotInteractive
}
