package model

import (
	"slices"
	"sync"
	"time"
)

// BankReport accumulates the pipeline state of one bank.
//
// Steps of one pipeline run sequentially, but the transform step fans out
// across cards, so the append helpers lock.
type BankReport struct {
	// Bank is the bank name as used in API requests.
	Bank string `json:"bank"`

	// Links are the cards found on the listing page.
	Links []CardLink `json:"links,omitempty"`

	// Raw holds one record per detail page that was captured.
	Raw []*CardRawData `json:"raw,omitempty"`

	// Details holds the transformed records, in the order of Raw.
	Details []*CardDetails `json:"details,omitempty"`

	// PerformedSteps lists the steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Errors lists non-fatal problems, such as a card page that failed to load.
	Errors []string `json:"errors,omitempty"`

	// Error is the error of the step that stopped the pipeline, if any.
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`

	// TimedOut is true when the pipeline was cancelled between steps.
	TimedOut bool `json:"timed_out,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	mu sync.Mutex
}

// NewBankReport creates an empty report for bank.
func NewBankReport(bank string) *BankReport {
	return &BankReport{
		Bank:      bank,
		StartedAt: time.Now(),
	}
}

// AddRaw appends a captured card.
func (r *BankReport) AddRaw(raw *CardRawData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Raw = append(r.Raw, raw)
}

// AddError records a non-fatal problem.
func (r *BankReport) AddError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, msg)
}

// SetDetails stores the transformed record of Raw[i].
// Details grows as needed so that indexes keep matching Raw.
func (r *BankReport) SetDetails(i int, d *CardDetails) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.Details) < len(r.Raw) {
		r.Details = append(r.Details, nil)
	}
	if i >= 0 && i < len(r.Details) {
		r.Details[i] = d
	}
}

// CompletedDetails returns the non-nil transformed records in order.
func (r *BankReport) CompletedDetails() []*CardDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*CardDetails, 0, len(r.Details))
	for _, d := range r.Details {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// Finish stamps the end time.
func (r *BankReport) Finish() {
	r.FinishedAt = time.Now()
}

// Summary condenses the report for API and CLI output.
func (r *BankReport) Summary() BankSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := 0
	for _, d := range r.Details {
		if d != nil && d.LLMFailed {
			failed++
		}
	}

	return BankSummary{
		Bank:         r.Bank,
		CardsListed:  len(r.Links),
		CardsScraped: len(r.Raw),
		LLMFailures:  failed,
		Errors:       slices.Clone(r.Errors),
		Error:        r.ErrorMessage,
		TimedOut:     r.TimedOut,
		Duration:     r.FinishedAt.Sub(r.StartedAt),
	}
}

// BankSummary is the condensed outcome of one bank.
type BankSummary struct {
	Bank         string        `json:"bank"`
	CardsListed  int           `json:"cards_listed"`
	CardsScraped int           `json:"cards_scraped"`
	LLMFailures  int           `json:"llm_failures"`
	Errors       []string      `json:"errors,omitempty"`
	Error        string        `json:"error,omitempty"`
	TimedOut     bool          `json:"timed_out,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// RunResult is the outcome of one scrape across several banks.
type RunResult struct {
	// RunID identifies the run in the database, when persistence is on.
	RunID int64 `json:"run_id,omitempty"`

	// Banks are the requested banks in scrape order.
	Banks []string `json:"banks"`

	// Details holds every card record, in bank order then card order.
	Details []*CardDetails `json:"details"`

	// Summaries holds one entry per bank, in bank order.
	Summaries []BankSummary `json:"summaries"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunResult assembles a result from per-bank reports, preserving order.
func NewRunResult(banks []string, reports []*BankReport, startedAt time.Time) *RunResult {
	result := &RunResult{
		Banks:      slices.Clone(banks),
		Details:    make([]*CardDetails, 0),
		Summaries:  make([]BankSummary, 0, len(reports)),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	for _, r := range reports {
		if r == nil {
			continue
		}
		result.Details = append(result.Details, r.CompletedDetails()...)
		result.Summaries = append(result.Summaries, r.Summary())
	}
	return result
}

// FailedCount returns how many records are transform fallbacks.
func (r *RunResult) FailedCount() int {
	n := 0
	for _, d := range r.Details {
		if d.LLMFailed {
			n++
		}
	}
	return n
}
