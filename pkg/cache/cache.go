// Package cache stores build state that outlives a single invocation.
//
// The engine itself is single-invocation: every memo table starts empty. The
// only persisted state is the fingerprint status (the rule keys computed by
// the previous invocation), which lets the CLI report which rules changed.
// Storage is behind the small [Cache] interface with a file-backed
// implementation for the CLI and a null implementation when persistence is
// disabled.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
