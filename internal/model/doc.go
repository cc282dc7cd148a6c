// Package model defines the core data structures used throughout the scraper.
//
// This package contains the following main types:
//   - CardLink: A card discovered on a bank's listing page
//   - Snapshot: Page text captured after one interaction on a detail page
//   - CardRawData: All snapshots of one card, ready for the transform stage
//   - CardDetails: The structured record produced by the LLM
//   - BankReport: Per-bank pipeline state
//   - RunResult: The outcome of one scrape across several banks
//
// Models live in their own package so that browser, pipeline, llm, database
// and server can share them without import cycles.
//
// All types serialize to JSON for API responses and database storage.
package model
