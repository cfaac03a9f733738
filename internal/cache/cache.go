package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores fetched dataset bodies keyed by source
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a dataset URL
func CacheKey(source string) string {
	hash := sha256.Sum256([]byte(source))
	return "docket:v1:" + hex.EncodeToString(hash[:])
}
