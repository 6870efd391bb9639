// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about arrangement runs, rendering, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetArrangeHooks(&myArrangeHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Arrange().OnArrangeStart(ctx, mode, groupCount)
//	// ... run arrangement ...
//	observability.Arrange().OnArrangeComplete(ctx, mode, columns, restarts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Arrange Hooks
// =============================================================================

// ArrangeHooks receives events from the arrangement pipeline.
type ArrangeHooks interface {
	// Arrangement events
	OnArrangeStart(ctx context.Context, mode string, groupCount int)
	OnArrangeComplete(ctx context.Context, mode string, columns, restarts int, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
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

// NoopArrangeHooks is a no-op implementation of ArrangeHooks.
type NoopArrangeHooks struct{}

func (NoopArrangeHooks) OnArrangeStart(context.Context, string, int) {}
func (NoopArrangeHooks) OnArrangeComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopArrangeHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopArrangeHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	arrangeHooks ArrangeHooks = NoopArrangeHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetArrangeHooks registers custom arrangement hooks.
// This should be called once at application startup before any arrangement runs.
func SetArrangeHooks(h ArrangeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		arrangeHooks = h
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

// Arrange returns the registered arrangement hooks.
func Arrange() ArrangeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return arrangeHooks
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
	arrangeHooks = NoopArrangeHooks{}
	cacheHooks = NoopCacheHooks{}
}
