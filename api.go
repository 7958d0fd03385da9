package classmill

import (
	"sync"
	"unsafe"
)

// Register adds a new allocation class to the process-wide registry
// and returns its handle. Safe to call concurrently with itself and
// with any other package function; registration takes the registry's
// lock, while class lookups read the registry without one (see
// registry.go).
func Register(config Config) (Class, error) {
	return register(config)
}

// threadCaches maps an OS thread id (see tid_linux.go/tid_other.go)
// to the LocalCache the class-handle convenience methods below use.
// This is the Go-idiomatic substitute for true thread-local storage:
// an explicit LocalCache is the primary API (see cache.go) for
// callers that can hold one themselves (one per worker goroutine
// pinned to an OS thread, say); Class.Allocate/Class.Release exist
// for callers that just want the original library's class-handle-only
// calling convention, at the cost of a map lookup and, on any
// platform but Linux, no real per-thread isolation at all — see
// tid_other.go.
var threadCaches struct {
	mu    sync.Mutex
	byTID map[uint64]*LocalCache
}

func init() {
	threadCaches.byTID = make(map[uint64]*LocalCache)
}

func currentThreadCache() *LocalCache {
	tid := currentThreadID()

	threadCaches.mu.Lock()
	defer threadCaches.mu.Unlock()

	cache, ok := threadCaches.byTID[tid]
	if !ok {
		cache = &LocalCache{}
		threadCaches.byTID[tid] = cache
	}
	return cache
}

// Allocate returns a fresh object for c using the calling OS thread's
// implicit cache. Equivalent to LocalCache.Allocate for callers that
// would rather not manage a LocalCache themselves.
func (c Class) Allocate() unsafe.Pointer {
	return currentThreadCache().Allocate(c)
}

// Release returns ptr, previously obtained from c.Allocate, using the
// calling OS thread's implicit cache. ptr must have come from the
// same class; a mismatch aborts, per LocalCache.Release.
func (c Class) Release(ptr unsafe.Pointer) {
	currentThreadCache().Release(c, ptr)
}

// DetachCurrentThread drains and discards the calling OS thread's
// implicit cache, per LocalCache.Detach. Call this before an OS
// thread that has used Class.Allocate/Class.Release exits, so objects
// parked in its cache aren't stranded.
//
// On platforms without a real thread id (see tid_other.go) every
// caller shares tid 0's cache, so this also makes that shared cache's
// contents available to whichever goroutine calls it next; it is not
// a substitute for giving each OS thread its own LocalCache on those
// platforms.
func DetachCurrentThread() {
	tid := currentThreadID()

	threadCaches.mu.Lock()
	cache, ok := threadCaches.byTID[tid]
	delete(threadCaches.byTID, tid)
	threadCaches.mu.Unlock()

	if ok {
		cache.Detach()
	}
}
