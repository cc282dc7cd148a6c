package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/browser"
	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/llm"
	"github.com/Raj-Taware/credit-scrape/internal/model"
	"github.com/Raj-Taware/credit-scrape/internal/pipeline"
)

// ErrNoCardData is returned when no bank yielded a single captured card.
var ErrNoCardData = errors.New("No card data could be extracted from the source websites.") //nolint:staticcheck // Message is part of the API output

// UnknownBankError is returned when a request names banks that have no
// strategy.
type UnknownBankError struct {
	// Invalid lists the unknown names as given.
	Invalid []string

	// Available lists the configured banks in scrape order.
	Available []string
}

func (e *UnknownBankError) Error() string {
	quoted := make([]string, len(e.Available))
	for i, name := range e.Available {
		quoted[i] = "'" + name + "'"
	}
	return "Invalid bank name(s). Available banks: [" + strings.Join(quoted, ", ") + "]"
}

// Store persists cards and run history. *database.CardDB implements it.
type Store interface {
	pipeline.Store
	StartRun(ctx context.Context, banks []string) (int64, error)
	FinishRun(ctx context.Context, id int64, status model.RunStatus, cardCount, failedCount int, errMsg string) error
}

// Bank is one configured bank with its strategy.
type Bank struct {
	Name     string          `json:"name"`
	Strategy config.Strategy `json:"strategy"`
}

// Service runs the extract, load and transform stages for a set of banks.
type Service struct {
	cfg         *config.Config
	launcher    browser.Launcher
	transformer pipeline.Transformer
	store       Store
	observer    pipeline.Observer
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLauncher replaces the browser engine selected by the config.
func WithLauncher(l browser.Launcher) Option {
	return func(s *Service) {
		s.launcher = l
	}
}

// WithTransformer replaces the LLM transformer built from the config.
func WithTransformer(t pipeline.Transformer) Option {
	return func(s *Service) {
		s.transformer = t
	}
}

// WithStore enables persistence of captures, details and runs.
func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStepObserver receives the timing of every pipeline step.
func WithStepObserver(o pipeline.Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a service. Unless replaced by options, the browser engine and
// the transformer are built from cfg.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cfg.Strategies == nil {
		s.cfg.Strategies = config.DefaultFile()
	}
	if s.launcher == nil {
		s.launcher = browser.NewLauncher(cfg, s.logger)
	}
	if s.transformer == nil {
		s.transformer = llm.NewTransformerFromConfig(cfg, s.logger)
	}
	return s
}

// Banks lists the configured banks in scrape order.
func (s *Service) Banks() []Bank {
	names := s.cfg.Strategies.BankNames()
	banks := make([]Bank, 0, len(names))
	for _, name := range names {
		strategy, _ := s.cfg.Strategies.Strategy(name)
		banks = append(banks, Bank{Name: name, Strategy: strategy})
	}
	return banks
}

// Resolve validates requested bank names. An empty request means every
// configured bank. Duplicates keep their first position.
func (s *Service) Resolve(requested []string) ([]string, error) {
	available := s.cfg.Strategies.BankNames()
	if len(requested) == 0 {
		return available, nil
	}

	names := make([]string, 0, len(requested))
	var invalid []string
	for _, name := range requested {
		if !slices.Contains(available, name) {
			invalid = append(invalid, name)
			continue
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	if len(invalid) > 0 {
		return nil, &UnknownBankError{Invalid: invalid, Available: available}
	}
	return names, nil
}

// Run scrapes the requested banks and returns their card records, in bank
// order then listing order.
//
// Extraction runs for every bank first in one browser session; the browser
// is closed before the transform stage starts. A bank that fails is logged
// and left out. ErrNoCardData is returned when no bank produced a capture.
func (s *Service) Run(ctx context.Context, requested []string) (*model.RunResult, error) {
	return s.RunWithProgress(ctx, requested, nil)
}

// ProgressFunc receives the summary of each bank whose extraction ended.
// It may be called from several goroutines at once.
type ProgressFunc func(summary model.BankSummary)

// RunWithProgress is Run with progress reporting. progress may be nil.
func (s *Service) RunWithProgress(ctx context.Context, requested []string, progress ProgressFunc) (*model.RunResult, error) {
	banks, err := s.Resolve(requested)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	runID := s.startRun(ctx, banks)

	s.logger.Info("starting scrape", "banks", banks, "engine", s.cfg.Engine)

	reports, err := s.extract(ctx, banks, progress)
	if err != nil {
		s.finishRun(runID, model.StatusFailed, 0, 0, err)
		return nil, err
	}

	captured := 0
	for _, r := range reports {
		captured += len(r.Raw)
	}
	if captured == 0 {
		s.finishRun(runID, model.StatusFailed, 0, 0, ErrNoCardData)
		return nil, ErrNoCardData
	}

	s.logger.Info("extraction finished", "cards", captured, "elapsed", time.Since(startedAt))

	if err := s.transform(ctx, reports); err != nil {
		s.finishRun(runID, model.StatusFailed, 0, 0, err)
		return nil, err
	}

	result := model.NewRunResult(banks, reports, startedAt)
	result.RunID = runID
	s.finishRun(runID, model.StatusCompleted, len(result.Details), result.FailedCount(), nil)

	s.logger.Info("scrape finished",
		"cards", len(result.Details),
		"llm_failures", result.FailedCount(),
		"elapsed", result.FinishedAt.Sub(startedAt),
	)
	return result, nil
}

// extract runs the list and detail steps for every bank.
func (s *Service) extract(ctx context.Context, banks []string, progress ProgressFunc) ([]*model.BankReport, error) {
	session, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("failed to close browser", "error", err)
		}
	}()

	snapshotOpts := browser.SnapshotOptionsFromConfig(s.cfg, s.logger)

	bp := pipeline.NewBatchProcessor(func() *pipeline.Pipeline {
		p := s.newPipeline()
		p.AddSteps(
			pipeline.NewListStep(session, s.cfg.Strategies,
				pipeline.WithListTimeout(s.cfg.ListTimeout),
				pipeline.WithListLogger(s.logger),
			),
			pipeline.NewDetailStep(session, s.cfg.Strategies,
				pipeline.WithDetailTimeout(s.cfg.DetailTimeout),
				pipeline.WithSnapshotOptions(snapshotOpts),
				pipeline.WithDetailLogger(s.logger),
			),
		)
		if s.store != nil {
			p.AddStep(pipeline.NewPersistRawStep(s.store, s.logger))
		}
		return p
	},
		pipeline.WithConcurrency(s.cfg.Concurrency),
		pipeline.WithBatchLogger(s.logger),
	)

	reports := make([]*model.BankReport, len(banks))
	err = bp.ProcessBatchWithCallback(ctx, banks, func(report *model.BankReport, i int) {
		reports[i] = report
		if progress != nil {
			progress(report.Summary())
		}
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// transform runs the LLM stage over the extraction reports.
func (s *Service) transform(ctx context.Context, reports []*model.BankReport) error {
	bp := pipeline.NewBatchProcessor(func() *pipeline.Pipeline {
		p := s.newPipeline()
		p.AddStep(pipeline.NewTransformStep(s.transformer,
			pipeline.WithTransformConcurrency(s.cfg.TransformConcurrency),
			pipeline.WithTransformLogger(s.logger),
		))
		if s.store != nil {
			p.AddStep(pipeline.NewPersistDetailsStep(s.store, s.logger))
		}
		return p
	},
		pipeline.WithConcurrency(s.cfg.Concurrency),
		pipeline.WithBatchLogger(s.logger),
	)

	return bp.ProcessReports(ctx, reports)
}

func (s *Service) newPipeline() *pipeline.Pipeline {
	// Persist steps still store what was captured before a failing step.
	opts := []pipeline.Option{
		pipeline.WithLogger(s.logger),
		pipeline.WithContinueOnError(s.store != nil),
	}
	if s.observer != nil {
		opts = append(opts, pipeline.WithObserver(s.observer))
	}
	return pipeline.New(opts...)
}

// startRun records the run when storage is on. Failures only disable the
// run record; the scrape itself goes ahead.
func (s *Service) startRun(ctx context.Context, banks []string) int64 {
	if s.store == nil {
		return 0
	}
	id, err := s.store.StartRun(ctx, banks)
	if err != nil {
		s.logger.Warn("failed to record run", "error", err)
		return 0
	}
	return id
}

func (s *Service) finishRun(id int64, status model.RunStatus, cards, failed int, runErr error) {
	if s.store == nil || id == 0 {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// The request context may be cancelled by now.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.FinishRun(ctx, id, status, cards, failed, msg); err != nil {
		s.logger.Warn("failed to record run outcome", "run", id, "error", err)
	}
}

// LLMAvailable reports whether the transformer can reach an LLM.
func (s *Service) LLMAvailable() bool {
	if t, ok := s.transformer.(interface{ Available() bool }); ok {
		return t.Available()
	}
	return true
}

// Engine returns the configured browser engine name.
func (s *Service) Engine() string {
	return s.cfg.Engine
}
