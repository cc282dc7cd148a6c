// Package config provides configuration structures and utilities for the
// scraper API. It defines the runtime options for the HTTP service, the
// browser and LLM stages, and the per-bank scraping strategies that tell the
// extractor where card listings live and which tabs to click.
package config
