package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// fakePage is an in-memory Page. Clicking an element appends its reveal
// text to the body until Escape is pressed.
type fakePage struct {
	mu        sync.Mutex
	base      string
	shown     string
	elements  map[string][]*fakeElement
	bodyErrs  int
	escapes   int
	locateErr error
}

func (p *fakePage) Goto(context.Context, string, time.Duration) error { return nil }

func (p *fakePage) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bodyErrs > 0 {
		p.bodyErrs--
		return "", errors.New("body not ready")
	}
	if p.shown == "" {
		return p.base, nil
	}
	return p.base + "\n" + p.shown, nil
}

func (p *fakePage) HTML(context.Context) (string, error) { return "<html></html>", nil }

func (p *fakePage) Locate(_ context.Context, selector string) ([]Element, error) {
	if p.locateErr != nil {
		return nil, p.locateErr
	}
	els := p.elements[selector]
	out := make([]Element, len(els))
	for i, el := range els {
		el.page = p
		out[i] = el
	}
	return out, nil
}

func (p *fakePage) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if key == "Escape" {
		p.escapes++
		p.shown = ""
	}
	return nil
}

func (p *fakePage) Close() error { return nil }

type fakeElement struct {
	page     *fakePage
	hidden   bool
	disabled bool
	clickErr error
	reveals  string
	clicks   int
}

func (e *fakeElement) Visible(context.Context) (bool, error) { return !e.hidden, nil }
func (e *fakeElement) Enabled(context.Context) (bool, error) { return !e.disabled, nil }

func (e *fakeElement) Click(context.Context, time.Duration) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	e.page.mu.Lock()
	e.page.shown = e.reveals
	e.page.mu.Unlock()
	return nil
}

func labels(snaps []model.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Label
	}
	return out
}

// TestTriggerSelector tests selector detection for trigger identifiers.
func TestTriggerSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Fees", "text=/Fees/i"},
		{"View Benefits", "text=/View Benefits/i"},
		{"Fees & Charges", "text=/Fees & Charges/i"},
		{"button.view-benefit-btn", "button.view-benefit-btn"},
		{"#feature-tab-1", "#feature-tab-1"},
		{"a.read-more-btn", "a.read-more-btn"},
		{"a:has-text('Fees & Charges')", "a:has-text('Fees & Charges')"},
		{"button", "button"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := TriggerSelector(tt.in); got != tt.want {
				t.Errorf("TriggerSelector(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestCaptureSnapshots tests the interaction walk over a fake page.
func TestCaptureSnapshots(t *testing.T) {
	t.Parallel()

	opts := SnapshotOptions{MaxSnapshots: 10}

	t.Run("clicks visible enabled elements in order", func(t *testing.T) {
		t.Parallel()

		hidden := &fakeElement{hidden: true, reveals: "never"}
		fees := &fakeElement{reveals: "Annual fee ₹499"}
		rewards := &fakeElement{reveals: "5X points"}
		page := &fakePage{
			base: "Card overview",
			elements: map[string][]*fakeElement{
				"text=/Fees/i": {hidden, fees},
				"#rewards":     {rewards},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{"Fees", "#rewards"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"--- SNAPSHOT 1: INITIAL STATE ---",
			"--- SNAPSHOT 2: AFTER CLICKING Fees #2 ---",
			"--- SNAPSHOT 3: AFTER CLICKING #rewards #1 ---",
		}
		if diff := cmp.Diff(want, labels(snaps)); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
		if snaps[1].Text != "Card overview\nAnnual fee ₹499" {
			t.Errorf("unexpected snapshot text %q", snaps[1].Text)
		}
		if hidden.clicks != 0 {
			t.Error("expected hidden element not to be clicked")
		}
		if page.escapes != 2 {
			t.Errorf("expected 2 escape presses, got %d", page.escapes)
		}
		for _, s := range snaps {
			if s.Fingerprint != Fingerprint(s.Text) {
				t.Errorf("snapshot %d has wrong fingerprint", s.Index)
			}
			if s.Duplicate {
				t.Errorf("snapshot %d unexpectedly marked duplicate", s.Index)
			}
		}
	})

	t.Run("stops at max snapshots", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base: "base",
			elements: map[string][]*fakeElement{
				"text=/Tab/i": {{reveals: "one"}, {reveals: "two"}, {reveals: "three"}},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{"Tab"}, SnapshotOptions{MaxSnapshots: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snaps) != 2 {
			t.Errorf("expected 2 snapshots, got %d", len(snaps))
		}
	})

	t.Run("unchanged text is marked duplicate", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base: "same   text",
			elements: map[string][]*fakeElement{
				".noop": {{reveals: ""}},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{".noop"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snaps) != 2 {
			t.Fatalf("expected 2 snapshots, got %d", len(snaps))
		}
		if snaps[0].Duplicate || !snaps[1].Duplicate {
			t.Errorf("expected only the second snapshot to be a duplicate: %+v", snaps)
		}
		if snaps[0].Text != "same text" {
			t.Errorf("expected normalised text, got %q", snaps[0].Text)
		}
	})

	t.Run("text repeating any earlier snapshot is a duplicate", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base: "base",
			elements: map[string][]*fakeElement{
				"#a": {{reveals: "tab A"}},
				"#b": {{reveals: ""}},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{"#a", "#b"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snaps) != 3 {
			t.Fatalf("expected 3 snapshots, got %d", len(snaps))
		}
		got := []bool{snaps[0].Duplicate, snaps[1].Duplicate, snaps[2].Duplicate}
		if diff := cmp.Diff([]bool{false, false, true}, got); diff != "" {
			t.Errorf("duplicate flags mismatch (-want +got):\n%s", diff)
		}
		if strings.Count(model.JoinSnapshots(snaps), "base") != 2 {
			t.Errorf("expected the repeated initial text to be left out:\n%s", model.JoinSnapshots(snaps))
		}
	})

	t.Run("failed, disabled and missing elements are skipped", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base: "base",
			elements: map[string][]*fakeElement{
				"button.a": {{clickErr: errors.New("intercepted")}, {disabled: true}, {reveals: "ok"}},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{"Missing", "button.a"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			"--- SNAPSHOT 1: INITIAL STATE ---",
			"--- SNAPSHOT 2: AFTER CLICKING button.a #3 ---",
		}
		if diff := cmp.Diff(want, labels(snaps)); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failed initial read keeps numbering", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base:     "base",
			bodyErrs: 1,
			elements: map[string][]*fakeElement{
				".tab": {{reveals: "fees"}},
			},
		}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{".tab"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"--- SNAPSHOT 2: AFTER CLICKING .tab #1 ---"}, labels(snaps)); diff != "" {
			t.Errorf("labels mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("locate errors are ignored", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{base: "base", locateErr: errors.New("bad selector")}

		snaps, err := CaptureSnapshots(context.Background(), page, []string{".x"}, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(snaps) != 1 {
			t.Errorf("expected only the initial snapshot, got %d", len(snaps))
		}
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		page := &fakePage{base: "base"}
		snaps, err := CaptureSnapshots(ctx, page, []string{".x"}, opts)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("expected no snapshots, got %d", len(snaps))
		}
	})

	t.Run("settle delay is honoured", func(t *testing.T) {
		t.Parallel()

		page := &fakePage{
			base:     "base",
			elements: map[string][]*fakeElement{".tab": {{reveals: "x"}}},
		}

		start := time.Now()
		_, err := CaptureSnapshots(context.Background(), page, []string{".tab"}, SnapshotOptions{
			MaxSnapshots: 10,
			SettleDelay:  20 * time.Millisecond,
			DismissDelay: 10 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("expected at least 30ms of waits, took %v", elapsed)
		}
	})
}

// TestEffectiveTimeout tests clamping of timeouts to context deadlines.
func TestEffectiveTimeout(t *testing.T) {
	t.Parallel()

	if got := effectiveTimeout(context.Background(), time.Second); got != time.Second {
		t.Errorf("expected unchanged timeout, got %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if got := effectiveTimeout(ctx, time.Minute); got > 50*time.Millisecond {
		t.Errorf("expected timeout clamped to deadline, got %v", got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := effectiveTimeout(expired, time.Minute); got != time.Millisecond {
		t.Errorf("expected minimal timeout for expired context, got %v", got)
	}
}

// TestStaticEngine tests the HTTP engine against a local server.
func TestStaticEngine(t *testing.T) {
	t.Parallel()

	var gotUA string
	var uaMu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaMu.Lock()
		gotUA = r.UserAgent()
		uaMu.Unlock()

		switch r.URL.Path {
		case "/cards":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Cards</title></head><body>
				<div class="card"><h3>One</h3><a href="/one">More</a></div>
				<div class="card"><h3>Two</h3><a href="/two">More</a></div>
				<script>ignored()</script>
			</body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	launcher := NewLauncher(&config.Config{Engine: config.EngineStatic, UserAgent: "test-agent"}, nil)
	session, err := launcher.Launch(context.Background())
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	defer session.Close()

	page, err := session.NewPage(context.Background())
	if err != nil {
		t.Fatalf("new page failed: %v", err)
	}

	if _, err := page.BodyText(context.Background()); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument before Goto, got %v", err)
	}

	if err := page.Goto(context.Background(), server.URL+"/cards", time.Second); err != nil {
		t.Fatalf("goto failed: %v", err)
	}

	uaMu.Lock()
	if gotUA != "test-agent" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
	uaMu.Unlock()

	text, err := page.BodyText(context.Background())
	if err != nil {
		t.Fatalf("body text failed: %v", err)
	}
	if text != "One\nMore\nTwo\nMore" {
		t.Errorf("unexpected body text %q", text)
	}

	html, err := page.HTML(context.Background())
	if err != nil || !strings.Contains(html, `class="card"`) {
		t.Errorf("unexpected html %q (err %v)", html, err)
	}

	els, err := page.Locate(context.Background(), "div.card")
	if err != nil || len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d (err %v)", len(els), err)
	}
	if visible, _ := els[0].Visible(context.Background()); visible {
		t.Error("expected static elements to be invisible")
	}
	if err := els[0].Click(context.Background(), time.Second); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("expected ErrNotInteractive, got %v", err)
	}

	if els, err := page.Locate(context.Background(), "text=/More/i"); err != nil || len(els) != 0 {
		t.Errorf("expected text selectors to match nothing, got %d (err %v)", len(els), err)
	}

	snaps, err := CaptureSnapshots(context.Background(), page, []string{"More", "div.card"}, SnapshotOptions{MaxSnapshots: 10})
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("expected only the initial snapshot, got %d", len(snaps))
	}

	if err := page.Goto(context.Background(), server.URL+"/missing", time.Second); err == nil {
		t.Error("expected error for 404 page")
	}

	if err := page.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := page.HTML(context.Background()); !errors.Is(err, ErrPageClosed) {
		t.Errorf("expected ErrPageClosed, got %v", err)
	}
}

// TestStaticEngineBodyLimit tests that oversized pages are refused while
// being read.
func TestStaticEngineBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>"+strings.Repeat("Annual fee ₹499 ", 200)+"</body></html>")
	}))
	defer server.Close()

	launcher := NewStaticLauncher(Options{UserAgent: "test-agent"})
	if launcher.client.ResponseBodyLimit != maxStaticBodySize {
		t.Errorf("expected body limit %d, got %d", maxStaticBodySize, launcher.client.ResponseBodyLimit)
	}
	launcher.client.SetResponseBodyLimit(256)

	session, err := launcher.Launch(context.Background())
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	defer session.Close()

	page, err := session.NewPage(context.Background())
	if err != nil {
		t.Fatalf("new page failed: %v", err)
	}

	err = page.Goto(context.Background(), server.URL, time.Second)
	if !errors.Is(err, resty.ErrResponseBodyTooLarge) {
		t.Fatalf("expected ErrResponseBodyTooLarge, got %v", err)
	}
	if _, err := page.BodyText(context.Background()); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected no document after a refused page, got %v", err)
	}
}
