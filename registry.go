package classmill

import (
	"sync"
	"sync/atomic"
)

// registry is the process-wide, write-once-append class table.
// Registration takes the lock and publishes a fresh snapshot slice;
// every other reader (the fast path included) only ever does an
// atomic load of the current snapshot, never takes the lock. This
// mirrors the teacher runtime's own "global mutable state is
// write-mostly-once, read-many" discipline for things like allspans.
type registry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]*classState]
}

var globalRegistry registry

func init() {
	empty := make([]*classState, 1) // index 0 is the reserved dummy class.
	globalRegistry.snapshot.Store(&empty)
}

// classByID returns the classState for id, or nil if id is unknown.
// Safe to call concurrently with register, and lock-free.
func classByID(id uint32) *classState {
	snap := *globalRegistry.snapshot.Load()
	if int(id) >= len(snap) {
		return nil
	}
	return snap[id]
}

// register validates config, assigns the next dense non-zero class
// id, and publishes a new classState for it.
func register(config Config) (Class, error) {
	if config.Size == 0 {
		return Class{}, abortConfig("object size must be greater than zero")
	}
	if config.Size > SpanAlignment {
		return Class{}, abortConfig("object size must not exceed the span size")
	}
	if config.Mapper != AnonymousMapper && config.Mapper != FileMapper {
		return Class{}, abortConfig("unknown mapper kind")
	}
	if config.Mapper == FileMapper && config.FileDescriptor < 0 {
		return Class{}, abortConfig("file mapper requires a valid file descriptor")
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	old := *globalRegistry.snapshot.Load()
	if uint64(len(old)) > uint64(^uint32(0)) {
		return Class{}, abortConfig("registry has run out of class ids")
	}
	id := uint32(len(old)) // index 0 is reserved, so this is always >= 1.

	state := &classState{id: id, config: config}
	state.mill.init(state)

	next := make([]*classState, len(old)+1)
	copy(next, old)
	next[id] = state
	globalRegistry.snapshot.Store(&next)

	return Class{id: id}, nil
}
