// Package kv adapts the distributed KV contract used by the L2 cache
// tier (§4.C) and the short-tier Memory store (§4.E) onto Redis,
// grounded on the retrieval pack's pkg/cache/redis.go.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcpenterprise/server/internal/config"
)

// ErrNotFound is returned for a miss on Get.
var ErrNotFound = errors.New("kv: key not found")

// Store is a thin wrapper over go-redis exposing exactly the
// operations the cache and memory layers need: GET, SETEX, DEL,
// pattern DEL, and PING.
type Store struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg config.KVCache) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("kv: ping: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps a pre-built client, for tests against miniredis
// or similar in-process servers.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the value for key, or ErrNotFound on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return val, nil
}

// GetWithTTL returns the value and its remaining TTL, used by the L2
// cache's L1-backfill path (§4.C).
func (s *Store) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("kv: get-with-ttl %s: %w", key, err)
	}

	val, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("kv: get-with-ttl %s: %w", key, err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return val, ttl, nil
}

// Set writes value under key with an expiry of ttl (SETEX semantics).
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern deletes every key matching pattern (glob syntax),
// used by `invalidate(category)` against the `<category_prefix>*`
// namespace (§4.C).
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: keys %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: delete by pattern %s: %w", pattern, err)
	}
	return n, nil
}

// Ping checks connectivity, used by the health endpoint and by the
// cache's L2-unreachable degradation path (§4.C).
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
