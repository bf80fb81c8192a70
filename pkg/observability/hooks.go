// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about classpath resolution, plugin loading, and the
// fingerprint caches.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by library packages, so the engine
// packages stay free of any metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetResolverHooks(&myResolverHooks{})
//	    observability.SetPluginHooks(&myPluginHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	// ... compute view ...
//	observability.Resolver().OnViewComputed("transitive", target, len(entries), time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolver Hooks
// =============================================================================

// ResolverHooks receives events from the classpath resolver.
//
// OnViewComputed fires once per (view, rule) pair: memoized lookups do not
// emit events, so the count of calls equals the number of computations.
type ResolverHooks interface {
	OnViewComputed(view, target string, entries int, duration time.Duration)
}

// =============================================================================
// Plugin Hooks
// =============================================================================

// PluginHooks receives events from plugin discovery and instantiation.
type PluginHooks interface {
	// OnArchiveScanned records an archive scan; err is non-nil if the archive was skipped.
	OnArchiveScanned(ctx context.Context, archive string, candidates int, err error)

	// OnKindRegistered records a rule kind that became constructible.
	OnKindRegistered(ctx context.Context, kind, archive string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolverHooks is a no-op implementation of ResolverHooks.
type NoopResolverHooks struct{}

func (NoopResolverHooks) OnViewComputed(string, string, int, time.Duration) {}

// NoopPluginHooks is a no-op implementation of PluginHooks.
type NoopPluginHooks struct{}

func (NoopPluginHooks) OnArchiveScanned(context.Context, string, int, error) {}
func (NoopPluginHooks) OnKindRegistered(context.Context, string, string)     {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolverHooks ResolverHooks = NoopResolverHooks{}
	pluginHooks   PluginHooks   = NoopPluginHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetResolverHooks registers custom resolver hooks.
// This should be called once at application startup before any resolution.
func SetResolverHooks(h ResolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolverHooks = h
	}
}

// SetPluginHooks registers custom plugin hooks.
// This should be called once at application startup before plugin discovery.
func SetPluginHooks(h PluginHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pluginHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Resolver returns the registered resolver hooks.
func Resolver() ResolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolverHooks
}

// Plugin returns the registered plugin hooks.
func Plugin() PluginHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pluginHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolverHooks = NoopResolverHooks{}
	pluginHooks = NoopPluginHooks{}
	cacheHooks = NoopCacheHooks{}
}
