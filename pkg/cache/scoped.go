package cache

import (
	"context"
	"time"
)

// Scoped wraps a Cache and prefixes every key, so several projects can
// share one cache directory without their entries colliding.
//
//	store := cache.NewScoped(fileCache, cache.ProjectScope("/home/me/repo"))
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a cache whose keys are prefixed with prefix.
// A nil inner cache is replaced by a NullCache.
func NewScoped(inner Cache, prefix string) *Scoped {
	if inner == nil {
		inner = NewNullCache()
	}
	return &Scoped{inner: inner, prefix: prefix}
}

// ProjectScope returns the key prefix for a project root.
func ProjectScope(root string) string {
	return hashKey("project", root) + ":"
}

func (s *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, s.prefix+key, data, ttl)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}

func (s *Scoped) Close() error { return s.inner.Close() }

var _ Cache = (*Scoped)(nil)
