package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the counter backend behind a Limiter. The in-memory store is
// the default; the Redis store preserves the same check/increment
// contract for horizontally scaled deployments, where per-process
// counters would multiply the effective limit by the instance count.
type Store interface {
	// Incr records one hit for key and returns the hit count within the
	// current window together with the window reset time. The first hit
	// of a window (or of an unseen key) starts a fresh window.
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
	// Reset drops the counter for key.
	Reset(ctx context.Context, key string) error
}

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in a process-local map. Stale buckets are
// reclaimed by the owning Limiter's sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{count: 1, resetAt: now.Add(window)}
		s.buckets[key] = b
		return b.count, b.resetAt, nil
	}

	b.count++
	return b.count, b.resetAt, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// sweep deletes buckets whose window has passed.
func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
		}
	}
}

// RedisStore shares counters across instances. INCR plus a
// window-scoped expiry keeps the contract identical to MemoryStore;
// Redis reclaims stale keys itself, so no sweep is needed.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	k := s.key(key)

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		return int(count), time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
