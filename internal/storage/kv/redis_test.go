package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableClient points at a port nothing listens on, so calls fail
// fast without requiring a live Redis server in the test environment.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
}

func TestGetWrapsConnectionError(t *testing.T) {
	s := NewWithClient(unreachableClient())
	_, err := s.Get(context.Background(), "k")
	if err == nil {
		t.Fatal("expected error against unreachable redis")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("connection failure must not be reported as ErrNotFound")
	}
}

func TestPingFailsFastAgainstUnreachableServer(t *testing.T) {
	s := NewWithClient(unreachableClient())
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
}

func TestDeleteByPatternSurfacesKeysError(t *testing.T) {
	s := NewWithClient(unreachableClient())
	if _, err := s.DeleteByPattern(context.Background(), "tool_catalog:*"); err == nil {
		t.Fatal("expected error surfaced from Keys against unreachable server")
	}
}
