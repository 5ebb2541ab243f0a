package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores encoded view results. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []byte) error { return nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a bounded in-process cache with a fixed TTL. When full, the
// oldest entry is evicted.
type MemoryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]memoryEntry
	order      []string
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && !c.now().Before(entry.expiresAt) {
		c.remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.remove(key)
	}
	for len(c.order) >= c.maxEntries {
		c.remove(c.order[0])
	}
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.order = append(c.order, key)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// RedisCache shares view results across API replicas.
type RedisCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{redis: client, ttl: ttl, prefix: "clinicbi:view:"}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.redis.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dashboard: redis get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.redis.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("dashboard: redis set: %w", err)
	}
	return nil
}
