package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashKey returns a stable content hash of a raw cache key. Keys are
// content-addressed, not identity-addressed, so independently computed keys
// for the same logical request collide correctly across process restarts.
func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// compositeKey builds the namespaced storage key used by both tiers.
// The namespace prefix keeps key spaces disjoint and enables scoped
// clearing on the distributed tier.
func compositeKey(namespace, raw string) string {
	return namespace + ":" + hashKey(raw)
}
