package cache

import (
	"strings"
	"testing"
)

func TestHashKey_Deterministic(t *testing.T) {
	a := hashKey("keywords=laptop:index=Electronics")
	b := hashKey("keywords=laptop:index=Electronics")

	if a != b {
		t.Errorf("Same input produced different hashes: %q vs %q", a, b)
	}
}

func TestHashKey_KnownVector(t *testing.T) {
	// Stability across releases matters: previously written distributed
	// entries must stay addressable.
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := hashKey("hello"); got != want {
		t.Errorf("hashKey(%q) = %q, want %q", "hello", got, want)
	}
}

func TestHashKey_DistinctInputs(t *testing.T) {
	if hashKey("keywords=laptop") == hashKey("keywords=laptops") {
		t.Error("Different inputs produced the same hash")
	}
}

func TestCompositeKey(t *testing.T) {
	tests := []struct {
		name       string
		namespace  string
		raw        string
		wantPrefix string
	}{
		{"search_namespace", "search", "keywords=laptop", "search:"},
		{"products_namespace", "products", "item:B08N5WRWNW", "products:"},
		{"health_namespace", "health", "__health_check__", "health:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compositeKey(tt.namespace, tt.raw)

			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("compositeKey = %q, want prefix %q", got, tt.wantPrefix)
			}
			// namespace + ":" + 64 hex chars
			if len(got) != len(tt.namespace)+1+64 {
				t.Errorf("compositeKey length = %d, want %d", len(got), len(tt.namespace)+1+64)
			}
		})
	}
}

func TestCompositeKey_NamespaceIsolation(t *testing.T) {
	a := compositeKey("search", "same-raw-key")
	b := compositeKey("products", "same-raw-key")

	if a == b {
		t.Error("Same raw key in different namespaces must not collide")
	}
}
