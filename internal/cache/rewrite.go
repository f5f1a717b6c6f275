// Package cache holds the small rewrite cache the classifier consults
// before asking the LLM to turn a follow-up question into a standalone one.
// It is a bounded LRU, not a TTL store: the workload is a handful of
// in-flight conversations, not a large keyspace, so recency eviction is
// enough and a lost entry just costs one extra LLM call.
package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// entry is the value stored in the LRU's linked list.
type entry struct {
	key   string
	value string
}

// RewriteCache caches standalone-question rewrites keyed by the original
// question plus a short context fingerprint. It is safe for concurrent use.
// When backed by Redis, writes are mirrored best-effort: a failed mirror
// write is logged and otherwise ignored, since the in-process LRU already
// has the value and a lost mirror write only means another instance will
// recompute it.
type RewriteCache struct {
	mu       sync.Mutex
	size     int
	ll       *list.List
	items    map[string]*list.Element
	redis    *redis.Client
	redisTTL time.Duration
}

// New creates a RewriteCache holding at most size entries. If redisClient
// is non-nil, writes are mirrored to it under a namespaced key so other
// instances can reuse a rewrite without recomputing it.
func New(size int, redisClient *redis.Client) *RewriteCache {
	if size <= 0 {
		size = 10
	}
	return &RewriteCache{
		size:     size,
		ll:       list.New(),
		items:    make(map[string]*list.Element, size),
		redis:    redisClient,
		redisTTL: 10 * time.Minute,
	}
}

// Get returns the cached rewrite for key, checking the in-process LRU first
// and falling back to Redis (if configured) on a miss.
func (c *RewriteCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		val := el.Value.(*entry).value
		c.mu.Unlock()
		return val, true
	}
	c.mu.Unlock()

	if c.redis == nil {
		return "", false
	}

	val, err := c.redis.Get(ctx, redisKey(key)).Result()
	if err != nil {
		return "", false
	}

	c.mu.Lock()
	c.insertLocked(key, val)
	c.mu.Unlock()
	return val, true
}

// Put stores value under key, evicting the least-recently-used entry if the
// cache is at capacity. Also mirrors to Redis when configured.
func (c *RewriteCache) Put(ctx context.Context, key, value string) {
	c.mu.Lock()
	c.insertLocked(key, value)
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisKey(key), value, c.redisTTL).Err(); err != nil {
		slog.Warn("rewrite cache: redis mirror write failed", "error", err)
	}
}

func (c *RewriteCache) insertLocked(key, value string) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: key, value: value})
	c.items[key] = el

	for c.ll.Len() > c.size {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len reports the number of entries currently held in the in-process LRU.
func (c *RewriteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func redisKey(key string) string {
	return "rewrite_cache:" + key
}
