// Package pipeline runs the scrape of one bank as a sequence of steps.
//
// A bank goes through listing (find the card links), detail (visit each
// card and capture snapshots of its page), transform (turn the raw text into
// CardDetails with the LLM) and, when storage is on, persistence. Each stage
// is a Step that receives the bank's report and adds to it.
//
// The scraper runs two batches: extraction for every bank first, then the
// transform over the reports the extraction produced. BatchProcessor bounds
// how many banks are in flight using errgroup.
package pipeline
