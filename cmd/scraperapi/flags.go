package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/log"
)

// addScrapeFlags registers the flags shared by every command that runs the
// scraper.
func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Strategy file path (default: .scraperapi in current or home directory)")
	cmd.Flags().String("engine", config.EnginePlaywright,
		"Page engine: playwright (headless Chromium) or static (plain HTTP, no JavaScript)")
	cmd.Flags().Bool("headless", true,
		"Run Chromium without a window")

	cmd.Flags().Duration("list-timeout", config.DefaultListTimeout,
		"Navigation timeout for a bank's card listing page")
	cmd.Flags().Duration("detail-timeout", config.DefaultDetailTimeout,
		"Navigation timeout for a card's detail page")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of banks extracted in parallel")

	cmd.Flags().String("gemini-model", config.DefaultGeminiModel,
		"Gemini model used to extract card fields")
	cmd.Flags().Duration("llm-timeout", config.DefaultLLMTimeout,
		"Timeout of one Gemini request")
	cmd.Flags().Int("llm-concurrency", config.DefaultTransformConcurrency,
		"Number of Gemini requests in flight")

	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not store captures, cards and run history")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the environment and the
// command's flags, in that order of increasing priority. Flags left at their
// default do not override the environment. Strategies are loaded and the
// result is validated.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	config.LoadEnv(cfg)
	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := config.LoadStrategies(cfg); err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("configuration file not found: %s", cfg.StrategiesFile)
		}
		return nil, fmt.Errorf("failed to load strategies: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// applyFlags copies every changed flag into cfg. Flags a command does not
// define are never reported as changed.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"config", &cfg.StrategiesFile},
		{"engine", &cfg.Engine},
		{"gemini-model", &cfg.GeminiModel},
		{"db-dir", &cfg.DBDir},
		{"addr", &cfg.Addr},
		{"redis-addr", &cfg.RedisAddr},
		{"output", &cfg.ReportFile},
	}
	for _, f := range stringFlags {
		if flags.Changed(f.name) {
			if *f.dst, err = flags.GetString(f.name); err != nil {
				return err
			}
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"list-timeout", &cfg.ListTimeout},
		{"detail-timeout", &cfg.DetailTimeout},
		{"llm-timeout", &cfg.LLMTimeout},
		{"job-ttl", &cfg.JobTTL},
	}
	for _, f := range durations {
		if flags.Changed(f.name) {
			if *f.dst, err = flags.GetDuration(f.name); err != nil {
				return err
			}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"concurrency", &cfg.Concurrency},
		{"llm-concurrency", &cfg.TransformConcurrency},
		{"job-workers", &cfg.JobWorkers},
	}
	for _, f := range ints {
		if flags.Changed(f.name) {
			if *f.dst, err = flags.GetInt(f.name); err != nil {
				return err
			}
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"headless", &cfg.Headless},
		{"json", &cfg.JSONReport},
		{"markdown", &cfg.MarkdownReport},
	}
	for _, f := range bools {
		if flags.Changed(f.name) {
			if *f.dst, err = flags.GetBool(f.name); err != nil {
				return err
			}
		}
	}

	if flags.Changed("no-db") {
		noDB, err := flags.GetBool("no-db")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noDB
	}

	return nil
}

// setupLogger creates a secret-masking logger writing to stderr.
// base is the level used without --verbose.
func setupLogger(verbose bool, base slog.Level) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, log.Level(verbose, base))
}
