package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	store := newLocalStore(10, time.Minute)

	store.set("k1", []byte("v1"))

	got, ok := store.get("k1")
	if !ok {
		t.Fatal("Expected hit for freshly stored key")
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Expected v1, got %s", got)
	}
}

func TestLocalStore_MissOnUnsetKey(t *testing.T) {
	store := newLocalStore(10, time.Minute)

	if _, ok := store.get("nope"); ok {
		t.Error("Expected miss for unset key")
	}
}

func TestLocalStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store := newLocalStore(2, time.Minute)

	store.set("a", []byte("1"))
	store.set("b", []byte("2"))

	// Touch "a" so "b" becomes the eviction candidate.
	store.get("a")

	store.set("c", []byte("3"))

	if _, ok := store.get("b"); ok {
		t.Error("Expected least recently used key to be evicted")
	}
	if _, ok := store.get("a"); !ok {
		t.Error("Expected recently used key to survive eviction")
	}
	if _, ok := store.get("c"); !ok {
		t.Error("Expected newest key to survive eviction")
	}
	if store.len() != 2 {
		t.Errorf("Expected 2 entries after eviction, got %d", store.len())
	}
}

func TestLocalStore_UpdateBumpsRecency(t *testing.T) {
	store := newLocalStore(2, time.Minute)

	store.set("a", []byte("1"))
	store.set("b", []byte("2"))

	// Rewriting "a" makes "b" the oldest.
	store.set("a", []byte("1v2"))
	store.set("c", []byte("3"))

	if _, ok := store.get("b"); ok {
		t.Error("Expected stale key to be evicted after update bumped the other")
	}
	got, ok := store.get("a")
	if !ok {
		t.Fatal("Expected updated key to survive")
	}
	if !bytes.Equal(got, []byte("1v2")) {
		t.Errorf("Expected updated value, got %s", got)
	}
}

func TestLocalStore_TTLExpiry(t *testing.T) {
	store := newLocalStore(10, time.Minute)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.set("k", []byte("v"))

	current = current.Add(59 * time.Second)
	if _, ok := store.get("k"); !ok {
		t.Error("Expected entry to be live before the tier TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := store.get("k"); ok {
		t.Error("Expected entry to expire after the tier TTL")
	}
	if store.len() != 0 {
		t.Errorf("Expected expired entry to be removed on access, got %d entries", store.len())
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store := newLocalStore(10, time.Minute)

	store.set("k", []byte("v"))
	store.delete("k")

	if _, ok := store.get("k"); ok {
		t.Error("Expected miss after delete")
	}

	// Deleting an absent key is a no-op.
	store.delete("k")
	if store.len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.len())
	}
}
