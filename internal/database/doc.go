// Package database provides SQLite-based storage for the scraper.
//
// CardDB stores:
//   - Raw captures: the labelled snapshot text of every card page, keyed by URL
//   - Card details: the latest extracted record of every card, keyed by URL
//   - Runs: one row per scrape with its banks, status and card counts
//
// The driver is modernc.org/sqlite, which needs no CGO. The database is a
// single file in the XDG data directory, opened in WAL mode with one
// connection.
package database
