// Package scraper orchestrates a scrape across banks.
//
// Service.Run validates the requested banks, launches one browser session,
// extracts the card pages of every bank, closes the browser and runs the LLM
// transform over what was captured. Results keep bank order and, within a
// bank, listing order. When a Store is configured every capture, extracted
// record and run is written to it.
package scraper
