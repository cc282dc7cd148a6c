package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/extract"
	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// Generator produces JSON text for a prompt under a response schema.
// *Client implements it.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error)
}

// Transformer turns raw card text into CardDetails.
type Transformer struct {
	generator      Generator
	maxPromptChars int
	schema         *Schema
	logger         *slog.Logger
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithMaxPromptChars sets the raw text budget of a prompt.
func WithMaxPromptChars(n int) TransformerOption {
	return func(t *Transformer) {
		if n > 0 {
			t.maxPromptChars = n
		}
	}
}

// WithTransformerLogger sets a custom logger for the transformer.
func WithTransformerLogger(logger *slog.Logger) TransformerOption {
	return func(t *Transformer) {
		t.logger = logger
	}
}

// NewTransformer creates a transformer. A nil generator is allowed: every
// Transform then fails with ErrUnavailable, which callers turn into
// fallback records.
func NewTransformer(generator Generator, opts ...TransformerOption) *Transformer {
	t := &Transformer{
		generator:      generator,
		maxPromptChars: config.DefaultMaxPromptChars,
		schema:         CardDetailsSchema(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTransformerFromConfig wires a Gemini client when an API key is set.
func NewTransformerFromConfig(cfg *config.Config, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	var generator Generator
	client, err := NewClient(cfg, WithLogger(logger))
	if err == nil {
		generator = client
	} else {
		logger.Warn("LLM transform disabled", "reason", err)
	}
	return NewTransformer(generator,
		WithMaxPromptChars(cfg.MaxPromptChars),
		WithTransformerLogger(logger),
	)
}

// Available reports whether a generator is configured.
func (t *Transformer) Available() bool {
	return t.generator != nil
}

// Transform extracts the structured details of one card.
//
// Errors are ErrUnavailable, context.Canceled, or a *TransformError whose
// message starts with KindAPI or KindParsing.
func (t *Transformer) Transform(ctx context.Context, raw *model.CardRawData) (*model.CardDetails, error) {
	if t.generator == nil {
		return nil, ErrUnavailable
	}

	text, err := t.generator.GenerateJSON(ctx, t.Prompt(raw), t.schema)
	if err != nil {
		return nil, classify(err)
	}

	details, err := decodeDetails(text)
	if err != nil {
		return nil, classify(err)
	}

	if details.CardName == nil {
		details.CardName = model.String(raw.CardName)
	}
	details.Bank = raw.Bank
	details.URL = raw.URL

	t.logger.Debug("card transformed", "bank", raw.Bank, "card", raw.CardName)
	return details, nil
}

// Prompt builds the extraction prompt of raw. The raw text is cut to the
// configured number of characters.
func (t *Transformer) Prompt(raw *model.CardRawData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the raw text provided below for the %s credit card from %s.\n", raw.CardName, raw.Bank)
	b.WriteString("Your goal is to extract the required fields into the structured JSON format provided.\n\n")
	b.WriteString("**Guidelines:**\n")
	b.WriteString("1. EXTRACT ONLY: Do not hallucinate. If a field is not found, return an empty string or null.\n")
	b.WriteString("2. CONSOLIDATE: For long fields like 'card_benefits' and 'fees_and_charges', synthesize the most important 3-5 points.\n")
	b.WriteString("3. BE PRECISE: Include currency symbols (₹) and exact numbers when available.\n\n")
	b.WriteString("**Raw Text Dump (Concatenation of multiple snapshots):**\n")
	b.WriteString("---\n")
	b.WriteString(extract.Truncate(raw.RawText, t.maxPromptChars))
	b.WriteString("\n---\n")
	return b.String()
}

// decodeDetails parses and validates the model's JSON answer.
func decodeDetails(text string) (*model.CardDetails, error) {
	text = stripCodeFence(text)

	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("response is not a JSON object")
	}

	var details model.CardDetails
	if err := json.Unmarshal(trimmed, &details); err != nil {
		return nil, err
	}

	// Metadata comes from the scraper, never from the model.
	details.Bank = ""
	details.URL = ""
	details.LLMFailed = false

	details.Normalize()
	return &details, nil
}

// stripCodeFence removes a Markdown code fence around a JSON answer.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// FailureDetail returns the message placed in the fallback record of a
// failed transform.
func FailureDetail(err error) string {
	if err == nil {
		return ""
	}
	return classify(err).Error()
}
