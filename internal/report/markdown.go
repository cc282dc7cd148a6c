package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// MarkdownWriter outputs results in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeCards(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.RunResult) {
	md.H1("Credit Card Scrape Report")
	md.PlainText("")

	rows := [][]string{
		{"Banks", strings.Join(result.Banks, ", ")},
		{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()},
		{"Cards", strconv.Itoa(len(result.Details))},
		{"LLM failures", strconv.Itoa(result.FailedCount())},
	}
	if result.RunID != 0 {
		rows = append(rows, []string{"Run ID", strconv.FormatInt(result.RunID, 10)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *model.RunResult) {
	md.H2("Banks")
	md.PlainText("")

	rows := make([][]string, 0, len(result.Summaries))
	failedBanks := 0
	for _, s := range result.Summaries {
		status := "✅ Complete"
		switch {
		case s.TimedOut:
			status = "⚠️ Timed Out"
			failedBanks++
		case s.Error != "":
			status = "❌ " + cell(s.Error)
			failedBanks++
		case len(s.Errors) > 0:
			status = "⚠️ " + strconv.Itoa(len(s.Errors)) + " card(s) skipped"
		}
		rows = append(rows, []string{
			s.Bank,
			strconv.Itoa(s.CardsListed),
			strconv.Itoa(s.CardsScraped),
			strconv.Itoa(s.LLMFailures),
			status,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Bank", "Listed", "Scraped", "LLM failures", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.Details) > 0 {
		w.writePieChart(md, result)
	}

	switch {
	case failedBanks > 0:
		md.Cautionf("%d bank(s) could not be scraped. See the status column.", failedBanks)
	case result.FailedCount() > 0:
		md.Warningf("%d card(s) could not be parsed by the LLM and carry placeholder values.", result.FailedCount())
	default:
		md.Tip("Every listed card was scraped and parsed.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of cards per bank.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Cards per Bank"),
		piechart.WithShowData(true),
	)

	grouped := detailsByBank(result)
	for _, bank := range result.Banks {
		if n := len(grouped[bank]); n > 0 {
			chart.LabelAndIntValue(bank, uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeCards(md *markdown.Markdown, result *model.RunResult) {
	grouped := detailsByBank(result)

	for _, bank := range result.Banks {
		cards := grouped[bank]
		if len(cards) == 0 {
			continue
		}

		md.H2(bank)
		md.PlainText("")

		rows := make([][]string, len(cards))
		for i, d := range cards {
			name := cell(orDash(d.CardName))
			if d.URL != "" {
				name = "[" + name + "](" + d.URL + ")"
			}
			rows[i] = []string{
				name,
				cell(orDash(d.AnnualFee)),
				cell(milestone(d)),
				cell(truncateString(orDash(d.RewardPointsProgram), 80)),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Card", "Annual fee", "Milestone", "Rewards"},
			Rows:   rows,
		})
		md.PlainText("")

		for _, d := range cards {
			var body strings.Builder
			if d.FeesAndCharges != nil {
				body.WriteString("**Fees and charges:** " + *d.FeesAndCharges + "\n\n")
			}
			if d.CardBenefits != nil {
				body.WriteString("**Benefits:** " + *d.CardBenefits + "\n")
			}
			if body.Len() > 0 {
				md.Details(orDash(d.CardName), body.String())
			}
		}
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by scraperapi*")
}

// milestone renders the milestone fields as one cell.
func milestone(d *model.CardDetails) string {
	if d.MilestoneAmount == nil && d.MilestoneReward == nil {
		return "-"
	}
	return orDash(d.MilestoneDuration) + ": spend " + orDash(d.MilestoneAmount) + " → " + orDash(d.MilestoneReward)
}

// cell makes s safe inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
