package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the fees and benefits text of every card.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeCards(&sb, result)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      CREDIT CARD SCRAPE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Banks:          %s\n", strings.Join(result.Banks, ", "))
	fmt.Fprintf(sb, "Started:        %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(sb, "Cards:          %d\n", len(result.Details))
	if failed := result.FailedCount(); failed > 0 {
		fmt.Fprintf(sb, "LLM failures:   %d\n", failed)
	}
	if result.RunID != 0 {
		fmt.Fprintf(sb, "Run ID:         %d\n", result.RunID)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("BANKS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, s := range result.Summaries {
		status := "ok"
		switch {
		case s.TimedOut:
			status = "TIMED OUT"
		case s.Error != "":
			status = "ERROR - " + s.Error
		}
		fmt.Fprintf(sb, "  %-14s listed %3d  scraped %3d  llm failures %2d  %s\n",
			s.Bank, s.CardsListed, s.CardsScraped, s.LLMFailures, status)
		for _, e := range s.Errors {
			fmt.Fprintf(sb, "      ! %s\n", e)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCards(sb *strings.Builder, result *model.RunResult) {
	grouped := detailsByBank(result)

	for _, bank := range result.Banks {
		cards := grouped[bank]
		if len(cards) == 0 {
			continue
		}

		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		fmt.Fprintf(sb, "%s (%d)\n", strings.ToUpper(bank), len(cards))
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n\n")

		for _, d := range cards {
			w.writeCard(sb, d)
		}
	}
}

func (w *SimpleWriter) writeCard(sb *strings.Builder, d *model.CardDetails) {
	marker := ""
	if d.LLMFailed {
		marker = " [LLM FAILED]"
	}
	fmt.Fprintf(sb, "  %s%s\n", orDash(d.CardName), marker)
	fmt.Fprintf(sb, "    Annual fee:     %s\n", orDash(d.AnnualFee))
	if d.MilestoneAmount != nil || d.MilestoneReward != nil {
		fmt.Fprintf(sb, "    Milestone:      %s / %s -> %s\n",
			orDash(d.MilestoneDuration), orDash(d.MilestoneAmount), orDash(d.MilestoneReward))
	}
	fmt.Fprintf(sb, "    Rewards:        %s\n", orDash(d.RewardPointsProgram))
	if w.verbose {
		fmt.Fprintf(sb, "    Fees & charges: %s\n", orDash(d.FeesAndCharges))
		fmt.Fprintf(sb, "    Benefits:       %s\n", orDash(d.CardBenefits))
		if d.URL != "" {
			fmt.Fprintf(sb, "    URL:            %s\n", d.URL)
		}
	} else if d.LLMFailed {
		fmt.Fprintf(sb, "    %s\n", orDash(d.CardBenefits))
	}
	sb.WriteString("\n")
}
