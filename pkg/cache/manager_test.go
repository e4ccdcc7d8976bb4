package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// newTestManager returns a local-only manager with silenced logging.
func newTestManager() *Manager {
	cfg := DefaultConfig()
	cfg.Logger = zerolog.Nop()
	return NewManager(cfg)
}

// newDegradedManager returns a manager whose distributed tier points at an
// unreachable address.
func newDegradedManager(t *testing.T) *Manager {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := DefaultConfig()
	cfg.Redis = redisClient
	cfg.OpTimeout = 200 * time.Millisecond
	cfg.Logger = zerolog.Nop()
	return NewManager(cfg)
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{})

	if m.local.capacity != DefaultLocalCapacity {
		t.Errorf("Expected default capacity %d, got %d", DefaultLocalCapacity, m.local.capacity)
	}
	if m.local.ttl != DefaultLocalTTL {
		t.Errorf("Expected default local TTL %v, got %v", DefaultLocalTTL, m.local.ttl)
	}
	if m.defaultTTL != DefaultDistributedTTL {
		t.Errorf("Expected default distributed TTL %v, got %v", DefaultDistributedTTL, m.defaultTTL)
	}
	if m.opTimeout != DefaultOpTimeout {
		t.Errorf("Expected default op timeout %v, got %v", DefaultOpTimeout, m.opTimeout)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	type result struct {
		Title string  `json:"title"`
		Price float64 `json:"price"`
	}

	m.Set(ctx, "keywords=laptop", result{Title: "Laptop", Price: 499.99}, "search", time.Hour)

	data, ok := m.Get(ctx, "keywords=laptop", "search")
	if !ok {
		t.Fatal("Expected hit immediately after set")
	}

	var got result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Cached bytes are not valid JSON: %v", err)
	}
	if got.Title != "Laptop" || got.Price != 499.99 {
		t.Errorf("Round-trip mismatch: %+v", got)
	}
}

func TestManager_MissOnUnsetKey(t *testing.T) {
	m := newTestManager()

	if _, ok := m.Get(context.Background(), "never-set", "search"); ok {
		t.Error("Expected miss for unset key")
	}
}

func TestManager_DeleteThenMiss(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.Set(ctx, "k", "v", "search", 0)
	m.Delete(ctx, "k", "search")

	if _, ok := m.Get(ctx, "k", "search"); ok {
		t.Error("Expected miss after delete")
	}

	// Deleting again tolerates absence.
	m.Delete(ctx, "k", "search")
}

func TestManager_NamespaceIsolation(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.Set(ctx, "same-key", "search-value", "search", 0)
	m.Set(ctx, "same-key", "product-value", "products", 0)

	data, ok := m.Get(ctx, "same-key", "search")
	if !ok {
		t.Fatal("Expected hit in search namespace")
	}
	var got string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != "search-value" {
		t.Errorf("Namespace bled: got %q", got)
	}
}

func TestManager_UnserializableValueSkipped(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	// Channels cannot be JSON-marshaled; the store must be skipped silently.
	m.Set(ctx, "bad", make(chan int), "search", 0)

	if _, ok := m.Get(ctx, "bad", "search"); ok {
		t.Error("Expected unserializable value to be dropped")
	}
}

func TestManager_ClearNamespaceLocalOnly(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.Set(ctx, "k", "v", "search", 0)

	// With no distributed tier there is nothing to clear.
	if removed := m.ClearNamespace(ctx, "search"); removed != 0 {
		t.Errorf("Expected 0 removed without a distributed tier, got %d", removed)
	}

	// Clearing twice is as good as once.
	if removed := m.ClearNamespace(ctx, "search"); removed != 0 {
		t.Errorf("Expected idempotent clear, got %d", removed)
	}

	// Local entries age out through their TTL instead of being swept.
	if _, ok := m.Get(ctx, "k", "search"); !ok {
		t.Error("Expected local entry to survive a namespace clear")
	}
}

func TestManager_CloseWithoutRedis(t *testing.T) {
	m := newTestManager()

	if err := m.Close(); err != nil {
		t.Errorf("Expected nil close error without distributed tier, got %v", err)
	}
}

func TestManager_DegradedDistributedTier(t *testing.T) {
	m := newDegradedManager(t)
	ctx := context.Background()

	// Writes fall back to the local tier.
	m.Set(ctx, "k", "v", "search", time.Hour)

	data, ok := m.Get(ctx, "k", "search")
	if !ok {
		t.Fatal("Expected local tier to serve the value while Redis is down")
	}
	var got string
	if err := json.Unmarshal(data, &got); err != nil || got != "v" {
		t.Errorf("Expected cached value v, got %s (err %v)", data, err)
	}

	// Lookups for unknown keys degrade to a miss, not an error.
	if _, ok := m.Get(ctx, "unknown", "search"); ok {
		t.Error("Expected miss for unknown key with Redis down")
	}

	// Deletes and namespace clears swallow the outage too.
	m.Delete(ctx, "k", "search")
	if removed := m.ClearNamespace(ctx, "search"); removed != 0 {
		t.Errorf("Expected 0 removed with Redis down, got %d", removed)
	}
}
