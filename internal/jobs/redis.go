package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces job keys in Redis.
const DefaultKeyPrefix = "scraperapi:job:"

// RedisStore stores jobs in Redis as JSON values with a TTL, so that every
// API replica sees the same jobs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore initializes a Redis-backed Store.
func NewRedisStore(addr, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put writes the job record to Redis.
func (s *RedisStore) Put(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(job.ID), payload, s.ttl).Err()
}

// Get reads the job record from Redis.
func (s *RedisStore) Get(ctx context.Context, id string) (*Job, bool, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var job Job
	if err := json.Unmarshal(val, &job); err != nil {
		return nil, false, err
	}
	return &job, true, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
