package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore records when an alert was last sent.
type CooldownStore interface {
	// Acquire stamps key with now and returns true if key was not stamped
	// within the last window. It returns false and leaves the stamp alone otherwise.
	Acquire(ctx context.Context, key string, window time.Duration, now time.Time) (bool, error)
}

// MemoryStore is an in-process CooldownStore.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// Acquire implements CooldownStore.
func (m *MemoryStore) Acquire(ctx context.Context, key string, window time.Duration, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.last[key]; ok && now.Sub(last) < window {
		return false, nil
	}
	m.last[key] = now
	return true, nil
}

// Forget drops stamps older than maxAge.
func (m *MemoryStore) Forget(maxAge time.Duration, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key, last := range m.last {
		if now.Sub(last) > maxAge {
			delete(m.last, key)
			n++
		}
	}
	return n
}

// RedisKeyPrefix namespaces cooldown keys in Redis.
const RedisKeyPrefix = "drishti:cooldown:"

// RedisStore shares cooldowns between replicas. Each stamp is a key written
// with SET NX PX so it expires when the window ends.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Acquire implements CooldownStore. Expiry is driven by the Redis clock.
func (r *RedisStore) Acquire(ctx context.Context, key string, window time.Duration, now time.Time) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, RedisKeyPrefix+key, now.UnixMilli(), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}
