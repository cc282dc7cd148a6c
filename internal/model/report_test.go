package model

import (
	"sync"
	"testing"
	"time"
)

// TestBankReportDetails tests ordering of transformed records.
func TestBankReportDetails(t *testing.T) {
	t.Parallel()

	t.Run("details keep raw order under concurrent writes", func(t *testing.T) {
		t.Parallel()

		r := NewBankReport("Federal Bank")
		for _, name := range []string{"a", "b", "c", "d"} {
			r.AddRaw(&CardRawData{CardName: name})
		}

		var wg sync.WaitGroup
		for i := len(r.Raw) - 1; i >= 0; i-- {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.SetDetails(i, &CardDetails{CardName: String(r.Raw[i].CardName)})
			}()
		}
		wg.Wait()

		got := r.CompletedDetails()
		if len(got) != 4 {
			t.Fatalf("expected 4 details, got %d", len(got))
		}
		for i, want := range []string{"a", "b", "c", "d"} {
			if Value(got[i].CardName) != want {
				t.Errorf("details[%d] = %q, want %q", i, Value(got[i].CardName), want)
			}
		}
	})

	t.Run("missing details are skipped", func(t *testing.T) {
		t.Parallel()

		r := NewBankReport("Axis Bank")
		r.AddRaw(&CardRawData{CardName: "a"})
		r.AddRaw(&CardRawData{CardName: "b"})
		r.SetDetails(1, &CardDetails{CardName: String("b")})
		r.SetDetails(7, &CardDetails{})

		got := r.CompletedDetails()
		if len(got) != 1 || Value(got[0].CardName) != "b" {
			t.Errorf("unexpected details %+v", got)
		}
	})
}

// TestBankReportSummary tests the Summary method.
func TestBankReportSummary(t *testing.T) {
	t.Parallel()

	r := NewBankReport("HDFC Bank")
	r.Links = []CardLink{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	raw := &CardRawData{Bank: "HDFC Bank", CardName: "a"}
	r.AddRaw(raw)
	r.AddRaw(&CardRawData{Bank: "HDFC Bank", CardName: "b"})
	r.SetDetails(0, FailedCardDetails(raw, "boom"))
	r.SetDetails(1, &CardDetails{CardName: String("b")})
	r.AddError("card c: timeout")
	r.StartedAt = time.Unix(100, 0)
	r.FinishedAt = time.Unix(105, 0)

	s := r.Summary()
	if s.CardsListed != 3 || s.CardsScraped != 2 || s.LLMFailures != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if len(s.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", s.Errors)
	}
	if s.Duration != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", s.Duration)
	}
}

// TestNewRunResult tests assembling a run result across banks.
func TestNewRunResult(t *testing.T) {
	t.Parallel()

	first := NewBankReport("SBI Card")
	first.AddRaw(&CardRawData{CardName: "s1"})
	first.SetDetails(0, &CardDetails{CardName: String("s1")})

	second := NewBankReport("Axis Bank")
	raw := &CardRawData{CardName: "a1"}
	second.AddRaw(raw)
	second.SetDetails(0, FailedCardDetails(raw, "x"))

	result := NewRunResult([]string{"SBI Card", "Axis Bank"}, []*BankReport{first, nil, second}, time.Now())

	if len(result.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(result.Details))
	}
	if Value(result.Details[0].CardName) != "s1" || Value(result.Details[1].CardName) != "a1" {
		t.Error("expected details in bank order")
	}
	if len(result.Summaries) != 2 {
		t.Errorf("expected 2 summaries, got %d", len(result.Summaries))
	}
	if result.FailedCount() != 1 {
		t.Errorf("expected 1 failure, got %d", result.FailedCount())
	}
}

// TestRunStatus tests the RunStatus helpers.
func TestRunStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   RunStatus
		terminal bool
		valid    bool
	}{
		{StatusQueued, false, true},
		{StatusRunning, false, true},
		{StatusCompleted, true, true},
		{StatusFailed, true, true},
		{RunStatus("paused"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			t.Parallel()
			if tt.status.Terminal() != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", tt.status.Terminal(), tt.terminal)
			}
			if tt.status.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.status.Valid(), tt.valid)
			}
		})
	}
}
