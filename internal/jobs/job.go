package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// ErrNotFound is returned by Runner.Get for unknown or expired job IDs.
var ErrNotFound = errors.New("job not found")

// Job is one asynchronous scrape.
type Job struct {
	ID     string          `json:"id"`
	Banks  []string        `json:"banks"`
	Status model.RunStatus `json:"status"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// Progress lists the banks whose extraction ended, in completion order.
	Progress []model.BankSummary `json:"progress,omitempty"`

	// Result is set once the job completed.
	Result *model.RunResult `json:"result,omitempty"`

	// Error is set once the job failed.
	Error string `json:"error,omitempty"`
}

// Store persists job records.
type Store interface {
	// Put creates or replaces a job record.
	Put(ctx context.Context, job *Job) error

	// Get returns the job with id. The bool is false when no such job exists.
	Get(ctx context.Context, id string) (*Job, bool, error)
}
