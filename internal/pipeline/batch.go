package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// defaultConcurrency is the number of banks processed at once when no
// WithConcurrency option is given.
const defaultConcurrency = 2

// BatchProcessor runs one pipeline per bank, several banks at a time.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each bank.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of banks in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of banks processed at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each bank so that pipeline
// state doesn't leak between banks.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     defaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch creates a report for every bank and runs the pipeline on it.
// Reports are returned in the order of banks, including those of banks
// whose pipeline failed. The error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, banks []string) ([]*model.BankReport, error) {
	reports := make([]*model.BankReport, len(banks))
	for i, bank := range banks {
		reports[i] = model.NewBankReport(bank)
	}
	err := bp.process(ctx, reports, nil)
	return reports, err
}

// ProcessBatchWithCallback is ProcessBatch for streaming: callback receives
// each report, with its index in banks, as soon as that bank's pipeline
// ends. It is called from the worker goroutine and must be safe for
// concurrent use. Banks skipped because ctx ended are not reported.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	banks []string,
	callback func(report *model.BankReport, index int),
) error {
	reports := make([]*model.BankReport, len(banks))
	for i, bank := range banks {
		reports[i] = model.NewBankReport(bank)
	}
	return bp.process(ctx, reports, callback)
}

// ProcessReports runs the pipeline on existing reports. It is used to run
// a later stage (transform, persist) over the output of an earlier one.
func (bp *BatchProcessor) ProcessReports(ctx context.Context, reports []*model.BankReport) error {
	return bp.process(ctx, reports, nil)
}

func (bp *BatchProcessor) process(
	ctx context.Context,
	reports []*model.BankReport,
	callback func(report *model.BankReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_banks", len(reports),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, report := range reports {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("processing bank",
				"bank", report.Bank,
				"index", i+1,
				"total", len(reports),
			)

			err := bp.pipelineFactory().Execute(gctx, report)
			report.Finish()
			if callback != nil {
				callback(report, i)
			}

			if err != nil {
				// The error is recorded in the report; other banks continue.
				bp.logger.Warn("bank failed",
					"bank", report.Bank,
					"error", err,
				)
				return nil
			}

			bp.logger.Info("bank completed",
				"bank", report.Bank,
				"cards", len(report.Raw),
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_banks", len(reports),
		"elapsed", time.Since(startTime),
	)

	// gctx is always cancelled once Wait returns; only the caller's
	// context tells whether the batch was interrupted.
	if err == nil {
		err = ctx.Err()
	}
	return err
}
