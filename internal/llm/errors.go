package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("LLM service not available. Check GEMINI_API_KEY.") //nolint:staticcheck // Message is part of the API output

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("model returned no content")

// APIError is an error reported by the Gemini API.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"code"`

	// Status is the canonical status name, e.g. RESOURCE_EXHAUSTED.
	Status string `json:"status"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("%d. %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%d %s. %s", e.StatusCode, e.Status, e.Message)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// Failure kinds of a transform.
const (
	KindAPI     = "Gemini API Error"
	KindParsing = "LLM Parsing/Validation Error"
)

// TransformError is a failed transform of one card. Its message is the
// detail shown in the fallback record.
type TransformError struct {
	// Kind is KindAPI or KindParsing.
	Kind string

	Err error
}

func (e *TransformError) Error() string {
	return e.Kind + ": " + e.Err.Error()
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// classify wraps err in a TransformError of the right kind.
// ErrUnavailable and cancellation pass through unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}
	var te *TransformError
	if errors.As(err, &te) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return &TransformError{Kind: KindAPI, Err: err}
	}
	return &TransformError{Kind: KindParsing, Err: err}
}
