// Package browsertest provides an in-memory browser for tests of code that
// drives browser.Page.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/browser"
)

// ErrNotFound is returned by Goto for URLs the site does not serve.
var ErrNotFound = errors.New("404 not found")

// Document is one page served by a Site.
type Document struct {
	// HTML is returned by Page.HTML.
	HTML string

	// Text is the body text before any click.
	Text string

	// Err, when set, is returned by Goto.
	Err error

	// Reveals maps a selector to the texts shown by clicking each of the
	// elements it matches. A revealed text stays until Escape is pressed.
	Reveals map[string][]string
}

// Site is a fake browser serving fixed documents. It implements
// browser.Launcher and browser.Session.
type Site struct {
	// LaunchErr, when set, is returned by Launch.
	LaunchErr error

	mu       sync.Mutex
	docs     map[string]*Document
	visits   []string
	launches int
	pages    int
	closed   bool
}

// NewSite returns a site serving docs keyed by URL.
func NewSite(docs map[string]*Document) *Site {
	if docs == nil {
		docs = make(map[string]*Document)
	}
	return &Site{docs: docs}
}

// Launch implements browser.Launcher.
func (s *Site) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.LaunchErr != nil {
		return nil, s.LaunchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launches++
	s.closed = false
	return s, nil
}

// NewPage implements browser.Session.
func (s *Site) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, browser.ErrPageClosed
	}
	s.pages++
	return &page{site: s}, nil
}

// Close implements browser.Session.
func (s *Site) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Visits returns the URLs navigated to, in order.
func (s *Site) Visits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visits...)
}

// Launches returns how many sessions were started.
func (s *Site) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// Pages returns how many pages were opened.
func (s *Site) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// Closed reports whether the last session was closed.
func (s *Site) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Site) lookup(url string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits = append(s.visits, url)
	doc, ok := s.docs[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	}
	if doc.Err != nil {
		return nil, doc.Err
	}
	return doc, nil
}

type page struct {
	site *Site

	mu     sync.Mutex
	doc    *Document
	shown  string
	closed bool
}

func (p *page) Goto(ctx context.Context, url string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := p.site.lookup(url)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrPageClosed
	}
	p.doc = doc
	p.shown = ""
	return nil
}

func (p *page) current() (*Document, error) {
	if p.closed {
		return nil, browser.ErrPageClosed
	}
	if p.doc == nil {
		return nil, browser.ErrNoDocument
	}
	return p.doc, nil
}

func (p *page) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.current()
	if err != nil {
		return "", err
	}
	if p.shown == "" {
		return doc.Text, nil
	}
	return doc.Text + "\n" + p.shown, nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.current()
	if err != nil {
		return "", err
	}
	return doc.HTML, nil
}

func (p *page) Locate(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.current()
	if err != nil {
		return nil, err
	}
	reveals := doc.Reveals[selector]
	out := make([]browser.Element, len(reveals))
	for i, text := range reveals {
		out[i] = &element{page: p, reveals: text}
	}
	return out, nil
}

func (p *page) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key == "Escape" {
		p.shown = ""
	}
	return nil
}

func (p *page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type element struct {
	page    *page
	reveals string
}

func (e *element) Visible(context.Context) (bool, error) { return true, nil }
func (e *element) Enabled(context.Context) (bool, error) { return true, nil }

func (e *element) Click(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	e.page.shown = e.reveals
	return nil
}
