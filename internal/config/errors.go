package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is() by callers that want to react to a specific problem.
var (
	// ErrInvalidAddr is returned when the listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address: must not be empty")

	// ErrInvalidTimeout is returned when one of the navigation, click or LLM
	// timeouts is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the settle or dismiss delay is negative.
	// Use 0 for no delay after an interaction.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidConcurrency is returned when the bank or transform concurrency
	// is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxSnapshots is returned when fewer than one snapshot per card
	// is allowed. The initial snapshot always counts.
	ErrInvalidMaxSnapshots = errors.New("invalid max snapshots: must be at least 1")

	// ErrInvalidMaxPromptChars is returned when the prompt budget is not positive.
	ErrInvalidMaxPromptChars = errors.New("invalid max prompt chars: must be positive")

	// ErrUnknownEngine is returned when the browser engine is neither
	// "playwright" nor "static".
	ErrUnknownEngine = errors.New("unknown engine: must be playwright or static")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidStrategy is returned when a strategy is missing a listing URL
	// or one of its selectors.
	ErrInvalidStrategy = errors.New("invalid strategy")
)
