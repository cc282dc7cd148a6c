// Package jobs runs scrapes asynchronously.
//
// A scrape of all banks takes minutes, longer than most HTTP clients wait.
// Runner accepts a job, returns its ID at once and records the job's state in
// a Store as it moves from queued to running to completed or failed.
// MemoryStore serves a single process; RedisStore lets several API replicas
// share job state.
package jobs
