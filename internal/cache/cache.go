// Package cache implements the multi-level cache of §4.C: a bounded
// LRU L1 in front of a distributed KV L2, with per-category TTLs and
// write-through/invalidate-through semantics.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mcpenterprise/server/internal/config"
	"github.com/mcpenterprise/server/internal/storage/kv"
)

// L2 is the distributed KV contract the cache's second tier needs.
// Satisfied by *kv.Store; narrowed to an interface so tests can
// substitute a fake instead of a live Redis connection.
type L2 interface {
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
}

// HitTier reports which tier, if any, satisfied a Get.
type HitTier string

const (
	HitL1   HitTier = "L1"
	HitL2   HitTier = "L2"
	HitMiss HitTier = "miss"
)

type l1Entry struct {
	value    []byte
	category string
	expires  time.Time
}

// Cache is the multi-level cache. L2 is optional: when nil, or when it
// reports errors, the cache degrades to L1-only per §4.C's failure
// mode, logging at most once per minute.
type Cache struct {
	l1           *lru.Cache[string, l1Entry]
	l1TTL        time.Duration
	categoryTTLs config.CategoryTTLs

	l2 L2

	log         *slog.Logger
	mu          sync.Mutex
	lastL2Warn  time.Time
	l2Unhealthy bool
}

// New builds a Cache from cfg. l2 may be nil to run L1-only.
func New(cfg config.Cache, l2 L2, log *slog.Logger) (*Cache, error) {
	capacity := cfg.L1Capacity
	if capacity <= 0 {
		capacity = 2000
	}
	l1, err := lru.New[string, l1Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: new L1: %w", err)
	}

	ttl := cfg.L1TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	categoryTTLs := cfg.CategoryTTLs
	if len(categoryTTLs) == 0 {
		categoryTTLs = config.DefaultCategoryTTLs()
	}

	if log == nil {
		log = slog.Default()
	}

	return &Cache{
		l1:           l1,
		l1TTL:        ttl,
		categoryTTLs: categoryTTLs,
		l2:           l2,
		log:          log,
	}, nil
}

func namespacedKey(category, key string) string {
	return category + ":" + key
}

// Get reads category/key, consulting L1 then L2, backfilling L1 on an
// L2 hit with the key's remaining TTL.
func (c *Cache) Get(ctx context.Context, category, key string) ([]byte, HitTier, error) {
	nk := namespacedKey(category, key)

	if entry, ok := c.l1.Get(nk); ok {
		if time.Now().Before(entry.expires) {
			return entry.value, HitL1, nil
		}
		c.l1.Remove(nk)
	}

	if c.l2 == nil {
		return nil, HitMiss, nil
	}

	val, ttl, err := c.l2.GetWithTTL(ctx, nk)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, HitMiss, nil
		}
		c.warnL2Unreachable(err)
		return nil, HitMiss, nil
	}

	backfillTTL := ttl
	if backfillTTL <= 0 || backfillTTL > c.l1TTL {
		backfillTTL = c.l1TTL
	}
	c.l1.Add(nk, l1Entry{value: val, category: category, expires: time.Now().Add(backfillTTL)})
	return val, HitL2, nil
}

// Set writes category/key through both tiers, using the category's
// configured L2 TTL.
func (c *Cache) Set(ctx context.Context, category, key string, value []byte) error {
	nk := namespacedKey(category, key)
	c.l1.Add(nk, l1Entry{value: value, category: category, expires: time.Now().Add(c.l1TTL)})

	if c.l2 == nil {
		return nil
	}
	ttl := c.categoryTTLs[category]
	if ttl <= 0 {
		ttl = c.l1TTL
	}
	if err := c.l2.Set(ctx, nk, value, ttl); err != nil {
		c.warnL2Unreachable(err)
		return nil
	}
	return nil
}

// InvalidateKey removes a single category/key from both tiers.
func (c *Cache) InvalidateKey(ctx context.Context, category, key string) error {
	nk := namespacedKey(category, key)
	c.l1.Remove(nk)
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Delete(ctx, nk); err != nil {
		c.warnL2Unreachable(err)
	}
	return nil
}

// Invalidate clears every L1 entry in category and issues a pattern
// delete against L2's `<category>:*` namespace.
func (c *Cache) Invalidate(ctx context.Context, category string) error {
	for _, nk := range c.l1.Keys() {
		if entry, ok := c.l1.Peek(nk); ok && entry.category == category {
			c.l1.Remove(nk)
		}
	}
	if c.l2 == nil {
		return nil
	}
	if _, err := c.l2.DeleteByPattern(ctx, category+":*"); err != nil {
		c.warnL2Unreachable(err)
	}
	return nil
}

// warnL2Unreachable logs the degradation at most once per minute,
// matching §4.C's "log warning once per minute" failure mode.
func (c *Cache) warnL2Unreachable(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.l2Unhealthy = true
	if time.Since(c.lastL2Warn) < time.Minute {
		return
	}
	c.lastL2Warn = time.Now()
	c.log.Warn("cache L2 unreachable, serving L1 only", "error", err)
}

// L2Healthy reports whether every L2 operation so far has succeeded,
// for the stats/health endpoints. Once an L2 operation has failed it
// reports false; later successful operations do not reset it.
func (c *Cache) L2Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.l2Unhealthy
}
