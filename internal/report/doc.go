// Package report renders scrape results for the command line.
//
// Writers for each output format:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: the full result, or only the card records as served by
//     the HTTP API
//   - MarkdownWriter: per-bank tables for sharing
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
