// Package main provides the entry point for the scraperapi CLI.
//
// scraperapi harvests the credit card catalogues of Indian banks with a
// headless browser, turns each card's page text into structured fields with
// Gemini, and serves the results over HTTP.
//
// Usage:
//
//	scraperapi serve
//	scraperapi scrape "SBI Card" "Axis Bank"
//
// See --help for all available options.
package main

// main is the entry point for scraperapi.
func main() {
	Execute()
}
