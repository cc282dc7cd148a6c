package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Raj-Taware/credit-scrape/internal/config"
)

// Retry backoff bounds for retryable responses.
const (
	retryWaitTime    = 2 * time.Second
	retryMaxWaitTime = 15 * time.Second
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	http   *resty.Client
	model  string
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryWait overrides the retry backoff. Used by tests.
func WithRetryWait(wait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	}
}

// NewClient creates a client for the configured model. It returns
// ErrUnavailable when cfg has no API key.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if !cfg.LLMEnabled() {
		return nil, ErrUnavailable
	}

	c := &Client{
		model:  cfg.GeminiModel,
		logger: slog.Default(),
	}

	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.GeminiBaseURL, "/")).
		SetHeader("x-goog-api-key", cfg.GeminiAPIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.LLMTimeout).
		SetRetryCount(cfg.LLMRetries).
		SetRetryWaitTime(retryWaitTime).
		SetRetryMaxWaitTime(retryMaxWaitTime).
		AddRetryCondition(shouldRetry)

	for _, opt := range opts {
		opt(c)
	}

	c.http.AddRetryHook(func(resp *resty.Response, err error) {
		status := 0
		if resp != nil {
			status = resp.StatusCode()
		}
		c.logger.Warn("retrying LLM request",
			"model", c.model,
			"status", status,
			"error", err,
		)
	})

	return c, nil
}

// shouldRetry retries transport failures, rate limiting and server errors.
// Cancellation is never retried.
func shouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// GenerateJSON sends prompt with a JSON response schema at temperature 0 and
// returns the text of the first candidate.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
			Temperature:      0,
		},
	}

	var result generateResponse
	var apiErr errorEnvelope

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(c.model)))
	if err != nil {
		return "", fmt.Errorf("generateContent request failed: %w", err)
	}

	c.logger.Debug("LLM response",
		"model", c.model,
		"status", resp.StatusCode(),
		"elapsed", time.Since(start),
	)

	if resp.IsError() {
		if apiErr.Error != nil {
			if apiErr.Error.StatusCode == 0 {
				apiErr.Error.StatusCode = resp.StatusCode()
			}
			return "", apiErr.Error
		}
		return "", &APIError{
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(resp.Body())),
		}
	}

	if len(result.Candidates) == 0 {
		if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, result.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		if reason := result.Candidates[0].FinishReason; reason != "" {
			return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, reason)
		}
		return "", ErrEmptyResponse
	}

	return text.String(), nil
}

// Model returns the model name used in requests.
func (c *Client) Model() string {
	return c.model
}
