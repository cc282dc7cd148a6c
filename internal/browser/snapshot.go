package browser

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/extract"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// SnapshotOptions controls the interaction walk of CaptureSnapshots.
type SnapshotOptions struct {
	// ClickTimeout bounds each click.
	ClickTimeout time.Duration

	// SettleDelay is the wait between a click and reading the page text.
	SettleDelay time.Duration

	// DismissDelay is the wait after pressing Escape.
	DismissDelay time.Duration

	// MaxSnapshots caps the snapshots taken, the initial one included.
	MaxSnapshots int

	// Logger receives per-interaction diagnostics at debug level.
	Logger *slog.Logger
}

// SnapshotOptionsFromConfig derives snapshot options from the application config.
func SnapshotOptionsFromConfig(cfg *config.Config, logger *slog.Logger) SnapshotOptions {
	return SnapshotOptions{
		ClickTimeout: cfg.ClickTimeout,
		SettleDelay:  cfg.SettleDelay,
		DismissDelay: cfg.DismissDelay,
		MaxSnapshots: cfg.MaxSnapshots,
		Logger:       logger,
	}
}

// TriggerSelector turns a trigger identifier into a Playwright selector.
// Identifiers that look like selectors (containing ".", "#", "button" or
// "a:") are used as they are. Anything else is taken as visible text and
// matched case-insensitively.
func TriggerSelector(identifier string) string {
	for _, marker := range []string{".", "#", "button", "a:"} {
		if strings.Contains(identifier, marker) {
			return identifier
		}
	}
	return fmt.Sprintf("text=/%s/i", identifier)
}

// Fingerprint returns the hex BLAKE2b-256 digest of text.
func Fingerprint(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CaptureSnapshots records the text of page before and after each
// interaction with the elements matched by triggers.
//
// The first snapshot is the initial state. Then, for each trigger and each
// element it matches, a visible and enabled element is clicked, the page is
// given SettleDelay to update, its text is recorded, and Escape is pressed to
// close whatever the click opened. The walk stops once MaxSnapshots is
// reached. Snapshot numbers count clicks that went through even when the
// text read that followed failed.
//
// Individual failures are logged and skipped. The only error returned is
// the context's, together with the snapshots taken so far.
func CaptureSnapshots(ctx context.Context, page Page, triggers []string, opts SnapshotOptions) ([]model.Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSnapshots := opts.MaxSnapshots
	if maxSnapshots <= 0 {
		maxSnapshots = config.DefaultMaxSnapshots
	}

	snapshots := make([]model.Snapshot, 0, maxSnapshots)
	seen := make(map[string]bool)

	record := func(index int, label, text string) {
		text = extract.NormalizeText(text)
		fp := Fingerprint(text)
		snapshots = append(snapshots, model.Snapshot{
			Index:       index,
			Label:       label,
			Text:        text,
			Fingerprint: fp,
			Duplicate:   seen[fp],
		})
		seen[fp] = true
	}

	count := 1
	if text, err := page.BodyText(ctx); err != nil {
		logger.Debug("initial snapshot failed", "error", err)
	} else {
		record(count, model.InitialLabel(count), text)
	}

	for _, trigger := range triggers {
		if err := ctx.Err(); err != nil {
			return snapshots, err
		}
		if count >= maxSnapshots {
			break
		}

		elements, err := page.Locate(ctx, TriggerSelector(trigger))
		if err != nil {
			logger.Debug("trigger lookup failed", "trigger", trigger, "error", err)
			continue
		}

		for i, el := range elements {
			if count >= maxSnapshots {
				break
			}
			if !interactive(ctx, el) {
				continue
			}

			if err := el.Click(ctx, opts.ClickTimeout); err != nil {
				logger.Debug("click failed", "trigger", trigger, "nth", i+1, "error", err)
				continue
			}
			if err := sleep(ctx, opts.SettleDelay); err != nil {
				return snapshots, err
			}

			count++
			text, err := page.BodyText(ctx)
			if err != nil {
				logger.Debug("snapshot failed", "trigger", trigger, "nth", i+1, "error", err)
				continue
			}
			record(count, model.ClickLabel(count, trigger, i+1), text)

			if err := page.PressKey(ctx, "Escape"); err != nil {
				logger.Debug("escape failed", "trigger", trigger, "error", err)
				continue
			}
			if err := sleep(ctx, opts.DismissDelay); err != nil {
				return snapshots, err
			}
		}
	}

	return snapshots, ctx.Err()
}

// interactive reports whether el can be clicked. Probe errors count as no.
func interactive(ctx context.Context, el Element) bool {
	visible, err := el.Visible(ctx)
	if err != nil || !visible {
		return false
	}
	enabled, err := el.Enabled(ctx)
	return err == nil && enabled
}
