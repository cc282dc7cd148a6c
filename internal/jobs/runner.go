package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("job runner is shut down")

// storeTimeout bounds the status writes made from worker goroutines.
const storeTimeout = 5 * time.Second

// RunFunc performs the scrape of one job. It reports each finished bank
// through progress, possibly from several goroutines.
type RunFunc func(ctx context.Context, banks []string, progress func(model.BankSummary)) (*model.RunResult, error)

// Runner executes submitted jobs in the background. At most workers jobs
// run at once; the rest wait in the queued state.
type Runner struct {
	store   Store
	run     RunFunc
	sem     chan struct{}
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers sets how many jobs run at once. Non-positive values are ignored.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.sem = make(chan struct{}, n)
		}
	}
}

// WithJobTimeout bounds each job. Zero means no limit.
func WithJobTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner that records jobs in store and executes them
// with run.
func NewRunner(store Store, run RunFunc, opts ...RunnerOption) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		store:  store,
		run:    run,
		sem:    make(chan struct{}, 1),
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Submit records a queued job for banks and starts it in the background.
// The returned job is the queued record; poll Get for progress.
func (r *Runner) Submit(ctx context.Context, banks []string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	job := &Job{
		ID:        uuid.NewString(),
		Banks:     slices.Clone(banks),
		Status:    model.StatusQueued,
		CreatedAt: time.Now(),
	}
	if err := r.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record job: %w", err)
	}

	r.logger.Info("job submitted", "job", job.ID, "banks", job.Banks)

	worker := *job
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(&worker)
	}()

	return job, nil
}

// Get returns the current record of a job.
func (r *Runner) Get(ctx context.Context, id string) (*Job, error) {
	job, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return job, nil
}

// Shutdown cancels running jobs and waits for the workers to record their
// final state, or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) execute(job *Job) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-r.ctx.Done():
		r.finish(job, nil, r.ctx.Err())
		return
	}

	job.Status = model.StatusRunning
	job.StartedAt = time.Now()
	r.put(job)

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	progress := func(summary model.BankSummary) {
		mu.Lock()
		defer mu.Unlock()
		job.Progress = append(job.Progress, summary)
		r.put(job)
	}

	result, err := r.run(ctx, job.Banks, progress)

	mu.Lock()
	defer mu.Unlock()
	r.finish(job, result, err)
}

func (r *Runner) finish(job *Job, result *model.RunResult, err error) {
	job.CompletedAt = time.Now()
	if err != nil {
		job.Status = model.StatusFailed
		job.Error = err.Error()
		r.logger.Warn("job failed", "job", job.ID, "error", err)
	} else {
		job.Status = model.StatusCompleted
		job.Result = result
		r.logger.Info("job completed", "job", job.ID)
	}
	r.put(job)
}

// put writes job with its own deadline: the runner context may already be
// cancelled when the final state is recorded.
func (r *Runner) put(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.Put(ctx, job); err != nil {
		r.logger.Error("failed to record job", "job", job.ID, "status", job.Status, "error", err)
	}
}
