package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp == nil {
			t.Fatal("expected non-nil processor")
		}
		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", defaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithConcurrency(5),
		)

		if bp.concurrency != 5 {
			t.Errorf("expected concurrency 5, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithConcurrency(0),
		)

		if bp.concurrency != defaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", defaultConcurrency, bp.concurrency)
		}
	})

	t.Run("applies WithBatchLogger option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(
			func() *Pipeline { return New() },
			WithBatchLogger(nil),
		)

		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all banks", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{
				name: "counter",
				do: func(_ context.Context, _ *model.BankReport) error {
					processedCount.Add(1)
					return nil
				},
			})
			return p
		})

		banks := []string{"SBI Card", "Federal Bank", "Axis Bank"}

		results, err := bp.ProcessBatch(context.Background(), banks)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
		for _, r := range results {
			if r.FinishedAt.IsZero() {
				t.Errorf("%s: expected FinishedAt to be set", r.Bank)
			}
		}
	})

	t.Run("live context returns no error", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		results, err := NewBatchProcessor(func() *Pipeline { return New() }).ProcessBatch(ctx, []string{"SBI Card"})
		if err != nil {
			t.Fatalf("expected nil error on an uncancelled context, got %v", err)
		}
		if len(results) != 1 || results[0].Error != nil {
			t.Errorf("unexpected results: %+v", results)
		}
		if err := NewBatchProcessor(func() *Pipeline { return New() }).ProcessReports(ctx, results); err != nil {
			t.Errorf("expected nil error from ProcessReports, got %v", err)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32
		var mu sync.Mutex

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New()
				p.AddStep(&fakeStep{
					name: "concurrent-counter",
					do: func(_ context.Context, _ *model.BankReport) error {
						current := currentConcurrent.Add(1)

						mu.Lock()
						if current > maxConcurrent.Load() {
							maxConcurrent.Store(current)
						}
						mu.Unlock()

						time.Sleep(50 * time.Millisecond)

						currentConcurrent.Add(-1)
						return nil
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		banks := make([]string, 8)
		for i := range banks {
			banks[i] = "Axis Bank"
		}

		_, err := bp.ProcessBatch(context.Background(), banks)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("max concurrent was %d, expected <= 2", maxConcurrent.Load())
		}
	})

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{name: "noop"})
			return p
		}, WithConcurrency(3))

		banks := []string{"SBI Card", "Federal Bank", "Axis Bank", "HDFC Bank"}

		results, err := bp.ProcessBatch(context.Background(), banks)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, result := range results {
			if result.Bank != banks[i] {
				t.Errorf("result[%d]: got %q, expected %q", i, result.Bank, banks[i])
			}
		}
	})

	t.Run("continues after individual bank failure", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{
				name: "sometimes-fails",
				do: func(_ context.Context, report *model.BankReport) error {
					processedCount.Add(1)
					if report.Bank == "Federal Bank" {
						return errors.New("listing selector matched no cards")
					}
					return nil
				},
			})
			return p
		})

		banks := []string{"SBI Card", "Federal Bank", "Axis Bank"}

		results, err := bp.ProcessBatch(context.Background(), banks)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
		if results[1].Error == nil {
			t.Error("expected error in second result")
		}
		if results[0].Error != nil || results[2].Error != nil {
			t.Error("expected other banks to succeed")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		var startedCount atomic.Int32

		bp := NewBatchProcessor(
			func() *Pipeline {
				p := New()
				p.AddStep(&fakeStep{
					name: "slow-step",
					do: func(ctx context.Context, _ *model.BankReport) error {
						startedCount.Add(1)
						select {
						case <-ctx.Done():
							return ctx.Err()
						case <-time.After(time.Second):
							return nil
						}
					},
				})
				return p
			},
			WithConcurrency(2),
		)

		banks := make([]string, 10)
		for i := range banks {
			banks[i] = "SBI Card"
		}

		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err := bp.ProcessBatch(ctx, banks)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		//nolint:gosec // len(banks) is small, no overflow risk
		if startedCount.Load() >= int32(len(banks)) {
			t.Error("expected some banks to not start due to cancellation")
		}
	})
}

// TestBatchProcessorProcessReports tests running a later stage over
// existing reports.
func TestBatchProcessorProcessReports(t *testing.T) {
	t.Parallel()

	reports := []*model.BankReport{
		model.NewBankReport("SBI Card"),
		model.NewBankReport("HDFC Bank"),
	}
	reports[0].AddRaw(&model.CardRawData{Bank: "SBI Card", CardName: "SimplyCLICK"})

	bp := NewBatchProcessor(func() *Pipeline {
		p := New()
		p.AddStep(&fakeStep{
			name: "count-raw",
			do: func(_ context.Context, report *model.BankReport) error {
				report.AddError("seen")
				return nil
			},
		})
		return p
	})

	if err := bp.ProcessReports(context.Background(), reports); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range reports {
		if len(r.Errors) != 1 {
			t.Errorf("%s: expected the stage to run once, got %v", r.Bank, r.Errors)
		}
	}
	if len(reports[0].Raw) != 1 {
		t.Error("expected earlier stage output to be kept")
	}
}

// TestBatchProcessorProcessBatchWithCallback tests streaming of finished banks.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	t.Run("calls back once per bank with its index", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{
				name: "list",
				do: func(_ context.Context, report *model.BankReport) error {
					if report.Bank == "HDFC Bank" {
						return errors.New("listing blocked")
					}
					return nil
				},
			})
			return p
		}, WithConcurrency(3))

		banks := []string{"SBI Card", "Federal Bank", "Axis Bank", "HDFC Bank"}

		var mu sync.Mutex
		got := make(map[int]*model.BankReport)
		err := bp.ProcessBatchWithCallback(context.Background(), banks, func(report *model.BankReport, index int) {
			mu.Lock()
			defer mu.Unlock()
			got[index] = report
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(got) != len(banks) {
			t.Fatalf("expected %d callbacks, got %d", len(banks), len(got))
		}
		for i, bank := range banks {
			if got[i].Bank != bank {
				t.Errorf("index %d: got %q, want %q", i, got[i].Bank, bank)
			}
			if got[i].FinishedAt.IsZero() {
				t.Errorf("%s: expected report to be finished before the callback", bank)
			}
		}
		if got[3].Error == nil {
			t.Error("expected failed bank to be reported with its error")
		}
	})

	t.Run("cancelled context skips remaining banks", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		err := NewBatchProcessor(func() *Pipeline { return New() }).
			ProcessBatchWithCallback(ctx, []string{"SBI Card", "Axis Bank"}, func(*model.BankReport, int) {
				calls.Add(1)
			})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no callbacks, got %d", calls.Load())
		}
	})
}
