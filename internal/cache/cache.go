// Package cache memoizes embedding vectors and fetched clue pages.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented TTL cache
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a URL
func CacheKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "wordlist:v1:" + hex.EncodeToString(hash[:])
}

// VectorKey is the memory-layer key of a word under an embedding model
func VectorKey(word, embeddingModelID string) string {
	return embeddingModelID + "\x00" + word
}
