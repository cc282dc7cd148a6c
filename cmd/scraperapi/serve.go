package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/database"
	"github.com/Raj-Taware/credit-scrape/internal/jobs"
	"github.com/Raj-Taware/credit-scrape/internal/log"
	"github.com/Raj-Taware/credit-scrape/internal/metrics"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
	"github.com/Raj-Taware/credit-scrape/internal/server"
)

// redisKeyPrefix namespaces job records in a shared Redis.
const redisKeyPrefix = "scraperapi:job:"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve starts the HTTP API on :8000 (or --addr / SCRAPER_ADDR).

Endpoints:
  POST /api/v1/scrape_and_extract   scrape banks and return card details
  GET  /api/v1/banks                list configured banks
  GET  /api/v1/cards?bank=NAME      cards stored by earlier runs
  GET  /api/v1/runs?limit=N         run history
  POST /api/v1/jobs                 start an asynchronous scrape
  GET  /api/v1/jobs/{id}            poll an asynchronous scrape
  GET  /healthz                     liveness and LLM availability
  GET  /metrics                     Prometheus metrics

Environment:
  GEMINI_API_KEY            enables LLM extraction
  GEMINI_MODEL              overrides the model name
  PLAYWRIGHT_BROWSERS_PATH  Chromium install directory
  REDIS_ADDR                stores async jobs in Redis instead of memory

Examples:
  # Serve with defaults
  scraperapi serve

  # Serve on another port with a custom strategy file
  scraperapi serve --addr :9000 -c banks.yaml`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addScrapeFlags(cmd)
	cmd.Flags().StringP("addr", "a", config.DefaultAddr,
		"Listen address")
	cmd.Flags().String("redis-addr", "",
		"Redis address for async job records (default: in memory)")
	cmd.Flags().Int("job-workers", config.DefaultJobWorkers,
		"Number of async jobs run at once")
	cmd.Flags().Duration("job-ttl", config.DefaultJobTTL,
		"How long finished job records are kept")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose, slog.LevelInfo)
	if logJSON {
		logger = log.NewSecureJSONLogger(os.Stderr, log.Level(cfg.Verbose, slog.LevelInfo))
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// runServe wires storage, metrics and the job store into the API server and
// serves until ctx ends.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...scraper.Option) error {
	if !cfg.LLMEnabled() {
		logger.Warn("GEMINI_API_KEY is not set, cards will carry LLM PARSE FAILED placeholders")
	}

	m := metrics.New()
	svcOpts := []scraper.Option{
		scraper.WithLogger(logger),
		scraper.WithStepObserver(m.ObserveStep),
	}
	srvOpts := []server.Option{
		server.WithMetrics(m),
		server.WithLogger(logger),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())

		svcOpts = append(svcOpts, scraper.WithStore(db))
		srvOpts = append(srvOpts, server.WithCardStore(db))
	}

	store, closeStore, err := openJobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	srvOpts = append(srvOpts, server.WithJobStore(store, jobs.WithWorkers(cfg.JobWorkers)))

	svc := scraper.New(cfg, append(svcOpts, opts...)...)
	return server.New(svc, srvOpts...).ListenAndServe(ctx, cfg.Addr)
}

// openJobStore returns the Redis store when an address is configured and
// the in-memory store otherwise. The returned func releases the store.
func openJobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (jobs.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return jobs.NewMemoryStore(cfg.JobTTL), func() {}, nil
	}

	store := jobs.NewRedisStore(cfg.RedisAddr, redisKeyPrefix, cfg.JobTTL)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("job store connected", "redis", cfg.RedisAddr)

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close redis", "error", err)
		}
	}, nil
}
