package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Raj-Taware/credit-scrape/internal/browser"
	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/extract"
	"github.com/Raj-Taware/credit-scrape/internal/llm"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// ErrUnknownBank is returned by steps when the report's bank has no strategy.
var ErrUnknownBank = errors.New("no strategy for bank")

// strategyFor looks up the strategy of report's bank.
func strategyFor(strategies *config.File, bank string) (config.Strategy, error) {
	s, ok := strategies.Strategy(bank)
	if !ok {
		return config.Strategy{}, fmt.Errorf("%w: %s", ErrUnknownBank, bank)
	}
	return s, nil
}

// ListStep opens a bank's listing page and collects the card links on it.
type ListStep struct {
	session    browser.Session
	strategies *config.File
	timeout    time.Duration
	logger     *slog.Logger
}

// ListStepOption configures a ListStep.
type ListStepOption func(*ListStep)

// WithListTimeout sets the navigation timeout of the listing page.
func WithListTimeout(d time.Duration) ListStepOption {
	return func(s *ListStep) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithListLogger sets a custom logger for the list step.
func WithListLogger(logger *slog.Logger) ListStepOption {
	return func(s *ListStep) {
		s.logger = logger
	}
}

// NewListStep creates a listing step that opens its page in session.
func NewListStep(session browser.Session, strategies *config.File, opts ...ListStepOption) *ListStep {
	s := &ListStep{
		session:    session,
		strategies: strategies,
		timeout:    config.DefaultListTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ListStep) Name() string {
	return "list"
}

// Do loads the listing page and stores the card links in report.Links.
// Any failure is fatal for the bank: without links there is nothing to visit.
func (s *ListStep) Do(ctx context.Context, report *model.BankReport) error {
	strategy, err := strategyFor(s.strategies, report.Bank)
	if err != nil {
		return err
	}

	page, err := s.session.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open listing page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Debug("failed to close listing page", "bank", report.Bank, "error", err)
		}
	}()

	if err := page.Goto(ctx, strategy.ListURL, s.timeout); err != nil {
		return fmt.Errorf("failed to load %s: %w", strategy.ListURL, err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("failed to read listing page: %w", err)
	}

	links, err := extract.ParseListing(strings.NewReader(html), strategy.ListURL, strategy)
	if err != nil {
		return err
	}

	report.Links = links
	s.logger.Info("cards found", "bank", report.Bank, "count", len(links))
	return nil
}

// DetailStep visits every card link and records its snapshots.
// One page is reused for all cards of the bank.
type DetailStep struct {
	session    browser.Session
	strategies *config.File
	timeout    time.Duration
	snapshot   browser.SnapshotOptions
	logger     *slog.Logger
}

// DetailStepOption configures a DetailStep.
type DetailStepOption func(*DetailStep)

// WithDetailTimeout sets the navigation timeout of each detail page.
func WithDetailTimeout(d time.Duration) DetailStepOption {
	return func(s *DetailStep) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSnapshotOptions sets the interaction walk options.
func WithSnapshotOptions(opts browser.SnapshotOptions) DetailStepOption {
	return func(s *DetailStep) {
		s.snapshot = opts
	}
}

// WithDetailLogger sets a custom logger for the detail step.
func WithDetailLogger(logger *slog.Logger) DetailStepOption {
	return func(s *DetailStep) {
		s.logger = logger
	}
}

// NewDetailStep creates a detail step that opens its page in session.
func NewDetailStep(session browser.Session, strategies *config.File, opts ...DetailStepOption) *DetailStep {
	s := &DetailStep{
		session:    session,
		strategies: strategies,
		timeout:    config.DefaultDetailTimeout,
		snapshot: browser.SnapshotOptions{
			ClickTimeout: config.DefaultClickTimeout,
			SettleDelay:  config.DefaultSettleDelay,
			DismissDelay: config.DefaultDismissDelay,
			MaxSnapshots: config.DefaultMaxSnapshots,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.snapshot.Logger == nil {
		s.snapshot.Logger = s.logger
	}
	return s
}

// Name returns the step name.
func (s *DetailStep) Name() string {
	return "detail"
}

// Do captures every card in report.Links. A card whose page does not load
// or yields no text is recorded in report.Errors and skipped.
func (s *DetailStep) Do(ctx context.Context, report *model.BankReport) error {
	if len(report.Links) == 0 {
		return nil
	}

	strategy, err := strategyFor(s.strategies, report.Bank)
	if err != nil {
		return err
	}

	page, err := s.session.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open detail page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Debug("failed to close detail page", "bank", report.Bank, "error", err)
		}
	}()

	for _, link := range report.Links {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.logger.Debug("scraping card", "bank", report.Bank, "card", link.Name, "url", link.URL)

		if err := page.Goto(ctx, link.URL, s.timeout); err != nil {
			s.logger.Warn("card page failed", "bank", report.Bank, "card", link.Name, "error", err)
			report.AddError(fmt.Sprintf("%s: %v", link.Name, err))
			continue
		}

		snapshots, err := browser.CaptureSnapshots(ctx, page, strategy.TabsToClick, s.snapshot)
		if err != nil {
			return err
		}

		raw := model.NewCardRawData(report.Bank, link, snapshots)
		if raw.RawText == "" {
			report.AddError(fmt.Sprintf("%s: no text captured", link.Name))
			continue
		}

		report.AddRaw(raw)
		s.logger.Info("card captured",
			"bank", report.Bank,
			"card", link.Name,
			"snapshots", len(snapshots),
		)
	}

	return nil
}

// Transformer turns a raw record into structured details.
// *llm.Transformer implements it.
type Transformer interface {
	Transform(ctx context.Context, raw *model.CardRawData) (*model.CardDetails, error)
}

// TransformStep runs the LLM transform over every raw record of a bank.
// A failed transform yields a fallback record, so report.Details always
// has one entry per raw record.
type TransformStep struct {
	transformer Transformer
	concurrency int
	logger      *slog.Logger
}

// TransformStepOption configures a TransformStep.
type TransformStepOption func(*TransformStep)

// WithTransformConcurrency sets the number of transforms in flight.
func WithTransformConcurrency(n int) TransformStepOption {
	return func(s *TransformStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTransformLogger sets a custom logger for the transform step.
func WithTransformLogger(logger *slog.Logger) TransformStepOption {
	return func(s *TransformStep) {
		s.logger = logger
	}
}

// NewTransformStep creates a transform step.
func NewTransformStep(transformer Transformer, opts ...TransformStepOption) *TransformStep {
	s := &TransformStep{
		transformer: transformer,
		concurrency: config.DefaultTransformConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *TransformStep) Name() string {
	return "transform"
}

// Do transforms report.Raw into report.Details, keeping the order.
func (s *TransformStep) Do(ctx context.Context, report *model.BankReport) error {
	// Cards are independent: one failure must not cancel the others, so the
	// group does not derive a context.
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, raw := range report.Raw {
		g.Go(func() error {
			details, err := s.transformer.Transform(ctx, raw)
			if err != nil {
				detail := llm.FailureDetail(err)
				s.logger.Warn("transform failed",
					"bank", report.Bank,
					"card", raw.CardName,
					"error", detail,
				)
				details = model.FailedCardDetails(raw, detail)
			}
			report.SetDetails(i, details)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Workers never return errors
	return ctx.Err()
}

// Store persists captured and transformed cards.
// *database.CardDB implements it.
type Store interface {
	SaveRawCapture(ctx context.Context, raw *model.CardRawData) error
	SaveCardDetails(ctx context.Context, details *model.CardDetails) error
}

// PersistStep writes a stage's output to the store. Write failures are
// recorded in report.Errors; they never fail the bank.
type PersistStep struct {
	store   Store
	details bool
	logger  *slog.Logger
}

// NewPersistRawStep creates a step that stores report.Raw.
func NewPersistRawStep(store Store, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// NewPersistDetailsStep creates a step that stores report.Details.
func NewPersistDetailsStep(store Store, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, details: true, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	if s.details {
		return "persist_details"
	}
	return "persist_raw"
}

// Do writes the records of the step's stage.
func (s *PersistStep) Do(ctx context.Context, report *model.BankReport) error {
	saved := 0
	if s.details {
		for _, d := range report.CompletedDetails() {
			if err := s.store.SaveCardDetails(ctx, d); err != nil {
				s.fail(report, model.Value(d.CardName), err)
				continue
			}
			saved++
		}
	} else {
		for _, raw := range report.Raw {
			if err := s.store.SaveRawCapture(ctx, raw); err != nil {
				s.fail(report, raw.CardName, err)
				continue
			}
			saved++
		}
	}

	s.logger.Debug("records saved", "bank", report.Bank, "step", s.Name(), "count", saved)
	return nil
}

func (s *PersistStep) fail(report *model.BankReport, card string, err error) {
	s.logger.Warn("failed to save record", "bank", report.Bank, "card", card, "error", err)
	report.AddError(fmt.Sprintf("%s: save failed: %v", card, err))
}
