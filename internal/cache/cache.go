// Package cache provides a two-tier cache for fetched transcripts: an
// in-process L1 map and an optional Redis L2 that survives restarts.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgard/studybuddy/internal/logger"
)

// Options configures a Tiered cache.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	// RedisURL enables the L2 tier, e.g. redis://localhost:6379/0.
	RedisURL string
}

// Tiered implements L1 (memory) + L2 (Redis) caching.
type Tiered struct {
	l1         sync.Map // key -> *entry
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
	log        *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New builds the cache. An unreachable or invalid Redis URL only disables L2.
func New(ctx context.Context, opts Options, log *slog.Logger) *Tiered {
	if log == nil {
		log = logger.Discard()
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	c := &Tiered{
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		log:        log.With("component", "cache"),
	}

	if opts.RedisURL != "" {
		redisOpts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			c.log.Warn("Invalid redis URL, L2 disabled", "error", err)
		} else {
			rdb := redis.NewClient(redisOpts)
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				c.log.Warn("Redis unreachable, L2 disabled", "addr", redisOpts.Addr, "error", err)
				_ = rdb.Close()
			} else {
				c.rdb = rdb
				c.log.Info("L2 redis connected", "addr", redisOpts.Addr)
			}
		}
	}

	c.log.Info("Cache initialized", "ttl", c.ttl, "redis", c.rdb != nil, "max_entries", c.maxEntries)
	return c
}

// Key builds a deterministic cache key from parts.
func Key(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("sb:%x", hash[:12])
}

// Get tries L1, then L2. An L2 hit populates L1.
func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if time.Now().Before(e.expiresAt) {
			c.hits.Add(1)
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			c.hits.Add(1)
			c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})
			return data, true
		}
		if err != redis.Nil {
			c.log.DebugContext(ctx, "L2 get failed", "error", err)
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores data in both tiers.
func (c *Tiered) Set(ctx context.Context, key string, data []byte) {
	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.DebugContext(ctx, "L2 set failed", "error", err)
		}
	}
}

// Delete removes key from both tiers.
func (c *Tiered) Delete(ctx context.Context, key string) {
	c.l1.Delete(key)
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.log.DebugContext(ctx, "L2 delete failed", "error", err)
		}
	}
}

// GetJSON loads and decodes a cached value. Decode failures count as a miss.
func GetJSON[T any](ctx context.Context, c *Tiered, key string) (T, bool) {
	var out T
	data, ok := c.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		c.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON encodes and stores v.
func SetJSON[T any](ctx context.Context, c *Tiered, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WarnContext(ctx, "Failed to encode cache value", "key", key, "error", err)
		return
	}
	c.Set(ctx, key, data)
}

// Stats returns the hit and miss counters.
func (c *Tiered) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of L1 entries, expired ones included.
func (c *Tiered) Len() int {
	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Cleanup removes expired L1 entries and returns how many were dropped.
func (c *Tiered) Cleanup() int {
	now := time.Now()
	removed := 0
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Close releases the Redis connection.
func (c *Tiered) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// evictIfNeeded removes entries when L1 reaches maxEntries: expired entries
// first, then the ones closest to expiry.
func (c *Tiered) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := c.Len()
	if count < c.maxEntries {
		return
	}

	count -= c.Cleanup()

	for count >= c.maxEntries {
		var oldestKey any
		oldestAt := time.Now().Add(c.ttl + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if e, ok := val.(*entry); ok && e.expiresAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}
