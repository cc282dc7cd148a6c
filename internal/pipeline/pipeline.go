package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// Step is one stage of a bank's scrape. Steps run in sequence on the same
// BankReport.
type Step interface {
	// Do runs the step. Problems with a single card (a detail page that
	// does not load) are recorded with report.AddError and do not fail the
	// step. A returned error stops the bank.
	Do(ctx context.Context, report *model.BankReport) error

	// Name identifies the step in logs and metrics.
	Name() string
}

// Observer is notified after every step. It is how metrics are collected
// without the pipeline depending on a metrics backend.
type Observer func(bank, step string, elapsed time.Duration, err error)

// Pipeline runs steps for one bank.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	observer Observer

	// continueOnError runs the remaining steps after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver registers a step observer.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// WithContinueOnError keeps running later steps after a step fails, so a
// persist step still stores what an interrupted detail step captured.
// Cancellation always stops the pipeline.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order and stops at the first failing one,
// unless WithContinueOnError is set. The first failure is recorded on
// report and returned.
//
// Cancellation is checked before each step; steps bound their own browser
// and network calls. A cancelled pipeline marks the report as timed out.
func (p *Pipeline) Execute(ctx context.Context, report *model.BankReport) error {
	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"bank", report.Bank,
				"reason", err,
			)
			report.TimedOut = true
			if firstErr != nil {
				return firstErr
			}
			return err
		}

		p.logger.Info("executing step", "step", step.Name(), "bank", report.Bank)

		start := time.Now()
		err := step.Do(ctx, report)
		elapsed := time.Since(start)
		if p.observer != nil {
			p.observer(report.Bank, step.Name(), elapsed, err)
		}

		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"bank", report.Bank,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
				report.Error = err
				report.ErrorMessage = err.Error()
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"bank", report.Bank,
			"elapsed", elapsed,
		)
		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return firstErr
}
