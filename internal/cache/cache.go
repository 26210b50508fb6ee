// Package cache stores encoded stereograms keyed by a hash of everything
// that determines their pixels. Generation is deterministic, so an entry
// never goes stale; TTLs only bound disk and memory use.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TTLResult is the default lifetime of a cached result
const TTLResult = 7 * 24 * time.Hour

// Cache is a byte store with per-entry expiry
type Cache interface {
	// Get returns the data and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash computes a SHA-256 hash of data as 64 hex characters
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key builds a key of the form prefix:hash(parts...)
func Key(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(data))
}
