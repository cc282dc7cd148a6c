package model

// RunStatus is the lifecycle state of a scrape run or job.
type RunStatus string

const (
	// StatusQueued means the run is accepted but not started.
	StatusQueued RunStatus = "queued"

	// StatusRunning means extraction or transform is in progress.
	StatusRunning RunStatus = "running"

	// StatusCompleted means the run produced a result.
	StatusCompleted RunStatus = "completed"

	// StatusFailed means the run ended with an error.
	StatusFailed RunStatus = "failed"
)

// String returns the status as text.
func (s RunStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}
