package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/database"
	"github.com/Raj-Taware/credit-scrape/internal/model"
	"github.com/Raj-Taware/credit-scrape/internal/report"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [bank...]",
		Short: "Scrape banks once and print the extracted cards",
		Long: `Scrape runs the same extract, load and transform stages as the API
and prints the result. Without arguments every configured bank is scraped.

Bank names are case-sensitive and must match the configured names
(see 'scraperapi banks').

Examples:
  # Scrape every configured bank
  scraperapi scrape

  # Scrape two banks
  scraperapi scrape "SBI Card" "Axis Bank"

  # Output the API's JSON array
  scraperapi scrape --json --cards-only "HDFC Bank"

  # Write a Markdown report
  scraperapi scrape -m -o reports/cards.md

  # Fetch pages without a browser
  scraperapi scrape --engine static "Federal Bank"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	addScrapeFlags(cmd)

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().Bool("cards-only", false,
		"With --json, output only the card array as returned by the API")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("summary", false,
		"With --output, also print the text summary to stdout")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	cardsOnly, err := cmd.Flags().GetBool("cards-only")
	if err != nil {
		return err
	}

	summary, err := cmd.Flags().GetBool("summary")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose, slog.LevelWarn)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cfg, args, scrapeOutput{
		stdout:    cmd.OutOrStdout(),
		cardsOnly: cardsOnly,
		summary:   summary,
	}, logger)
}

// scrapeOutput is where and how runScrape writes its report.
type scrapeOutput struct {
	stdout    io.Writer
	cardsOnly bool
	summary   bool
}

// runScrape runs one scrape of banks and writes the report.
func runScrape(ctx context.Context, cfg *config.Config, banks []string, out scrapeOutput, logger *slog.Logger, opts ...scraper.Option) error {
	svcOpts := []scraper.Option{scraper.WithLogger(logger)}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		svcOpts = append(svcOpts, scraper.WithStore(db))
	}

	svc := scraper.New(cfg, append(svcOpts, opts...)...)
	if !svc.LLMAvailable() {
		logger.Warn("GEMINI_API_KEY is not set, cards will carry LLM PARSE FAILED placeholders")
	}

	result, err := svc.Run(ctx, banks)
	if err != nil {
		var ube *scraper.UnknownBankError
		if errors.As(err, &ube) {
			return ube
		}
		return fmt.Errorf("scrape failed: %w", err)
	}

	return outputReport(cfg, result, out)
}

// outputReport outputs the result in the requested format.
func outputReport(cfg *config.Config, result *model.RunResult, out scrapeOutput) error {
	output := out.stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		jsonOpts := []report.JSONWriterOption{report.WithPrettyPrint(), report.WithVersion(getVersion())}
		if out.cardsOnly {
			jsonOpts = append(jsonOpts, report.WithCardsOnly())
		}
		w = report.NewJSONWriter(output, jsonOpts...)
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile != "" && out.summary {
		w = report.NewMultiWriter(w, report.NewSimpleWriter(out.stdout))
	}

	_, err := w.Write(result)
	return err
}
