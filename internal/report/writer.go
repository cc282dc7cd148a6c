package report

import (
	"io"

	"github.com/Raj-Taware/credit-scrape/internal/model"
)

// Writer writes a scrape result in one output format.
type Writer interface {
	// Write outputs the result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.RunResult) (int, error)
}

// MultiWriter writes to multiple Writers, e.g. terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers and returns the total
// bytes written. It stops on the first error.
func (m *MultiWriter) Write(result *model.RunResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// orDash returns the field value, or "-" when the LLM left it null.
func orDash(p *string) string {
	if v := model.Value(p); v != "" {
		return v
	}
	return "-"
}

// truncateString shortens s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// detailsByBank groups records by bank, keeping the order of banks.
func detailsByBank(result *model.RunResult) map[string][]*model.CardDetails {
	grouped := make(map[string][]*model.CardDetails, len(result.Banks))
	for _, d := range result.Details {
		grouped[d.Bank] = append(grouped[d.Bank], d)
	}
	return grouped
}
