// Package cache stores resolver responses so repeated runs over the
// same report do not re-issue identical model requests.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the storage interface shared by the memory, disk and
// layered implementations.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from a request payload. The version
// segment invalidates old entries when the payload format changes.
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "factmesh:v1:" + hex.EncodeToString(sum[:])
}
