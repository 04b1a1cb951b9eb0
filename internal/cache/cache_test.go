package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcpenterprise/server/internal/config"
	"github.com/mcpenterprise/server/internal/storage/kv"
)

type fakeL2 struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeL2() *fakeL2 {
	return &fakeL2{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeL2) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, 0, kv.ErrNotFound
	}
	return v, f.ttls[key], nil
}

func (f *fakeL2) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeL2) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeL2) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	for k := range f.data {
		delete(f.data, k)
		n++
	}
	return n, nil
}

func testConfig() config.Cache {
	return config.Cache{
		L1Capacity:   10,
		L1TTL:        time.Minute,
		CategoryTTLs: config.DefaultCategoryTTLs(),
	}
}

func TestSetThenGetHitsL1(t *testing.T) {
	c, err := New(testConfig(), newFakeL2(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "tool_catalog", "k1", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, tier, err := c.Get(ctx, "tool_catalog", "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitL1 || string(val) != "v1" {
		t.Fatalf("expected L1 hit with v1, got tier=%s val=%s", tier, val)
	}
}

func TestGetBackfillsL1FromL2(t *testing.T) {
	l2 := newFakeL2()
	c, _ := New(testConfig(), l2, nil)
	ctx := context.Background()

	l2.data["tool_catalog:k2"] = []byte("from-l2")
	l2.ttls["tool_catalog:k2"] = 5 * time.Second

	val, tier, err := c.Get(ctx, "tool_catalog", "k2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitL2 || string(val) != "from-l2" {
		t.Fatalf("expected L2 hit, got tier=%s val=%s", tier, val)
	}

	// Second read should now come from L1 without touching L2's data map.
	delete(l2.data, "tool_catalog:k2")
	val, tier, err = c.Get(ctx, "tool_catalog", "k2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitL1 || string(val) != "from-l2" {
		t.Fatalf("expected backfilled L1 hit, got tier=%s", tier)
	}
}

func TestGetMissReturnsMissTier(t *testing.T) {
	c, _ := New(testConfig(), newFakeL2(), nil)
	_, tier, err := c.Get(context.Background(), "tool_catalog", "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitMiss {
		t.Fatalf("expected miss, got %s", tier)
	}
}

func TestInvalidateCategoryClearsL1AndL2(t *testing.T) {
	l2 := newFakeL2()
	c, _ := New(testConfig(), l2, nil)
	ctx := context.Background()

	c.Set(ctx, "stats", "a", []byte("1"))
	c.Set(ctx, "stats", "b", []byte("2"))

	if err := c.Invalidate(ctx, "stats"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	_, tier, _ := c.Get(ctx, "stats", "a")
	if tier != HitMiss {
		t.Fatalf("expected miss after invalidate, got %s", tier)
	}
	if len(l2.data) != 0 {
		t.Fatalf("expected L2 cleared, still has %d entries", len(l2.data))
	}
}

func TestL2FailureDegradesToL1Only(t *testing.T) {
	l2 := newFakeL2()
	l2.err = errors.New("connection refused")
	c, _ := New(testConfig(), l2, nil)
	ctx := context.Background()

	// Set should not fail even though L2 errors.
	if err := c.Set(ctx, "db_query", "k", []byte("v")); err != nil {
		t.Fatalf("Set should tolerate L2 failure, got %v", err)
	}
	if c.L2Healthy() {
		t.Fatal("expected cache to report L2 unhealthy")
	}

	// L1 still served the write.
	val, tier, err := c.Get(ctx, "db_query", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitL1 || string(val) != "v" {
		t.Fatalf("expected L1 to still serve despite L2 failure, got tier=%s", tier)
	}
}

func TestNilL2RunsL1Only(t *testing.T) {
	c, err := New(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	c.Set(ctx, "vector_search", "k", []byte("v"))
	val, tier, err := c.Get(ctx, "vector_search", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tier != HitL1 || string(val) != "v" {
		t.Fatalf("expected L1 hit with nil L2, got tier=%s", tier)
	}
}
