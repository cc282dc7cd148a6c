// Package server implements the HTTP API.
//
// Routes:
//
//	POST /api/v1/scrape_and_extract  scrape banks and return card records
//	GET  /api/v1/banks               configured banks and strategies
//	GET  /api/v1/cards?bank=         stored card records
//	GET  /api/v1/runs?limit=         recent runs
//	POST /api/v1/jobs                start a scrape in the background
//	GET  /api/v1/jobs/{id}           state of a background scrape
//	GET  /healthz                    liveness, LLM availability, engine
//	GET  /metrics                    Prometheus metrics
//
// Errors are returned as {"detail": "..."}.
package server
