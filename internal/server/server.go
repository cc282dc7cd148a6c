package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/database"
	"github.com/Raj-Taware/credit-scrape/internal/jobs"
	"github.com/Raj-Taware/credit-scrape/internal/metrics"
	"github.com/Raj-Taware/credit-scrape/internal/model"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// maxBodyBytes caps request bodies. A bank list is a few hundred bytes.
const maxBodyBytes = 64 << 10

// CardStore serves stored results. *database.CardDB implements it.
type CardStore interface {
	ListCardDetails(ctx context.Context, bank string) ([]*model.CardDetails, error)
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
}

// Server is the HTTP API of the scraper.
type Server struct {
	service  *scraper.Service
	cards    CardStore
	metrics  *metrics.Metrics
	runner   *jobs.Runner
	logger   *slog.Logger
	shutdown time.Duration
	mux      *http.ServeMux

	jobStore   jobs.Store
	jobOptions []jobs.RunnerOption
}

// Option configures a Server.
type Option func(*Server)

// WithCardStore enables the stored results endpoints.
func WithCardStore(store CardStore) Option {
	return func(s *Server) {
		s.cards = store
	}
}

// WithMetrics records request and scrape metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithJobStore enables asynchronous jobs recorded in store.
func WithJobStore(store jobs.Store, opts ...jobs.RunnerOption) Option {
	return func(s *Server) {
		s.jobStore = store
		s.jobOptions = opts
	}
}

// WithShutdownTimeout sets how long ListenAndServe waits for in-flight
// requests after its context ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdown = d
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server for service.
func New(service *scraper.Service, opts ...Option) *Server {
	s := &Server{
		service:  service,
		logger:   slog.Default(),
		shutdown: DefaultShutdownTimeout,
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.jobStore != nil {
		opts := append([]jobs.RunnerOption{jobs.WithRunnerLogger(s.logger)}, s.jobOptions...)
		s.runner = jobs.NewRunner(s.jobStore, s.runJob, opts...)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/v1/scrape_and_extract", s.handleScrape)
	s.mux.HandleFunc("GET /api/v1/banks", s.handleBanks)
	s.mux.HandleFunc("GET /api/v1/cards", s.handleCards)
	s.mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("POST /api/v1/jobs", s.handleSubmitJob)
	s.mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the application handler with logging and metrics applied.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully:
// in-flight requests and running jobs get the shutdown timeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", ln.Addr().String(), "engine", s.service.Engine())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if s.runner != nil {
		err = errors.Join(err, s.runner.Shutdown(shutdownCtx))
	}
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	return err
}

// Close stops the job runner. It is only needed when the handler is served
// by something other than ListenAndServe.
func (s *Server) Close(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}
	return s.runner.Shutdown(ctx)
}

// scrape runs the service and records the outcome.
func (s *Server) scrape(ctx context.Context, banks []string, progress scraper.ProgressFunc) (*model.RunResult, error) {
	result, err := s.service.RunWithProgress(ctx, banks, progress)
	if s.metrics != nil {
		var ube *scraper.UnknownBankError
		if !errors.As(err, &ube) {
			s.metrics.RecordRun(result, err)
		}
	}
	return result, err
}

func (s *Server) runJob(ctx context.Context, banks []string, progress func(model.BankSummary)) (*model.RunResult, error) {
	if s.metrics != nil {
		s.metrics.JobStarted()
		defer s.metrics.JobFinished()
	}
	return s.scrape(ctx, banks, progress)
}
