package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory. Records expire ttl after their
// last Put; expired records are dropped on access.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl keeps
// records forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores a copy of job.
func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	// Jobs are copied through JSON so callers can keep mutating theirs,
	// the same way the Redis store behaves.
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{payload: payload}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.jobs[job.ID] = entry
	s.sweep()
	return nil
}

// Get returns a copy of the job with id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, bool, error) {
	s.mu.Lock()
	entry, ok := s.jobs[id]
	if ok && s.expired(entry) {
		delete(s.jobs, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, false, nil
	}

	var job Job
	if err := json.Unmarshal(entry.payload, &job); err != nil {
		return nil, false, err
	}
	return &job, true, nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.jobs)
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

// sweep drops expired records. The caller holds mu.
func (s *MemoryStore) sweep() {
	for id, e := range s.jobs {
		if s.expired(e) {
			delete(s.jobs, id)
		}
	}
}
