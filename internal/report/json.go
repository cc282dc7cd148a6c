package report

import (
	"encoding/json"
	"io"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// JSONWriter outputs results in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// cardsOnly writes the bare record array served by the HTTP API.
	cardsOnly bool

	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithCardsOnly writes only the card records, the same shape as the
// response of POST /api/v1/scrape_and_extract.
func WithCardsOnly() JSONWriterOption {
	return func(w *JSONWriter) {
		w.cardsOnly = true
	}
}

// WithVersion records the program version in the report.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport wraps a result with output metadata.
type JSONReport struct {
	Version string           `json:"version,omitempty"`
	Result  *model.RunResult `json:"result"`
}

// Write outputs the result in JSON format.
func (w *JSONWriter) Write(result *model.RunResult) (int, error) {
	if w.cardsOnly {
		details := result.Details
		if details == nil {
			details = []*model.CardDetails{}
		}
		return w.writeJSON(details)
	}
	return w.writeJSON(&JSONReport{Version: w.version, Result: result})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
