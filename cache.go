package classmill

import "unsafe"

// classCache is one class's share of a LocalCache: the alloc-role
// magazine the fast path pops from, the release-role magazine it
// pushes onto, and the mill backing both once this class has been
// touched at least once.
type classCache struct {
	alloc   magazine
	release magazine
	mill    *mill
}

// inlineCacheCap is the number of classes a LocalCache keeps in its
// inline array before spilling into a heap-allocated growth slice,
// per §4.7.
const inlineCacheCap = CachePrealloc + 1

// LocalCache is a single thread's two-magazine-per-class cache: the
// fast path this package is built around. A LocalCache must not be
// used from more than one goroutine/OS thread at a time; see
// api.go for the thread-id-keyed convenience layer built on top of
// it.
type LocalCache struct {
	inline [inlineCacheCap]classCache
	extra  []classCache
}

// slot returns the classCache for id, growing the heap-allocated
// extra slice if id falls outside the inline array.
func (c *LocalCache) slot(id uint32) *classCache {
	if id < inlineCacheCap {
		return &c.inline[id]
	}
	idx := id - inlineCacheCap
	if idx >= uint32(len(c.extra)) {
		grown := make([]classCache, idx+1)
		copy(grown, c.extra)
		c.extra = grown
	}
	return &c.extra[idx]
}

// bind lazily attaches cs to its class's mill and, on first touch,
// seeds a fresh (exhausted) alloc magazine and a fresh empty release
// magazine. The alloc magazine starts exhausted on purpose: the first
// Allocate call for a class always takes the slow path once, the same
// as every subsequent refill.
func (c *classCache) bind(class Class) {
	if c.mill != nil {
		return
	}
	state := classByID(class.id)
	if state == nil {
		abortInvariant("allocate/release called with an unregistered class")
	}
	c.mill = &state.mill
	c.release = newReleaseMagazine(&magazineStorage{})
}

// Allocate returns a fresh object for class, taking the fast path
// when the cache's alloc magazine for class is non-empty and falling
// back to a mill refill otherwise. Panics (after logging, see
// errors.go) if class is unregistered.
func (c *LocalCache) Allocate(class Class) unsafe.Pointer {
	cs := c.slot(class.id)
	cs.bind(class)

	if ptr, ok := cs.alloc.get(); ok {
		return ptr
	}
	return c.allocateSlow(cs)
}

// allocateSlow implements §4.7's slow path: hand the drained alloc
// storage back to the mill for reuse, refill from the mill, and retry
// the fast path exactly once.
func (c *LocalCache) allocateSlow(cs *classCache) unsafe.Pointer {
	if cs.alloc.storage != nil {
		cs.mill.reclaimEmpty(cs.alloc.storage)
	}
	cs.alloc = cs.mill.refill()

	ptr, ok := cs.alloc.get()
	if !ok {
		abortInvariant("mill refill produced an empty magazine")
	}
	return ptr
}

// Release returns ptr, previously obtained from Allocate(class), to
// the cache. It aborts (see errors.go) if ptr's span metadata
// disagrees with class, per §4.6's O(1) class-mismatch check: this is
// the one validation the fast path always performs, because a
// mismatch here means silent heap corruption otherwise.
func (c *LocalCache) Release(class Class, ptr unsafe.Pointer) {
	_, meta := lookupSpan(ptr)
	if meta.classID != class.id {
		abortInvariant("release called with a class that does not own this pointer's span")
	}

	cs := c.slot(class.id)
	cs.bind(class)

	if _, ok := cs.release.put(ptr); ok {
		return
	}
	c.releaseSlow(cs, ptr)
}

// releaseSlow implements the release side of §4.7's slow path: drain
// the full release magazine into the mill, accept a fresh empty one
// back, and retry the fast path exactly once.
func (c *LocalCache) releaseSlow(cs *classCache, ptr unsafe.Pointer) {
	fresh := cs.mill.drain(cs.release.storage)
	cs.release = newReleaseMagazine(fresh)

	if _, ok := cs.release.put(ptr); !ok {
		abortInvariant("freshly drained release magazine is already full")
	}
}

// Detach drains every class this cache ever touched back into its
// mill, handing back both magazines' storages (preserving any
// not-yet-allocated or not-yet-drained objects they still hold) so no
// other thread's cache is starved by objects parked in an exiting
// thread's cache. Call this once, when a thread using this cache is
// about to exit or stop using it; the cache is empty and reusable
// afterward.
func (c *LocalCache) Detach() {
	for i := range c.inline {
		c.inline[i].detach()
	}
	for i := range c.extra {
		c.extra[i].detach()
	}
}

func (cs *classCache) detach() {
	if cs.mill == nil {
		return
	}

	if storage := cs.alloc.storage; storage != nil {
		if cs.alloc.cursor > 0 {
			// Items [0, cursor) are still unallocated objects;
			// hand them back as a populated magazine rather
			// than discarding them.
			storage.populated = uint32(cs.alloc.cursor)
			cs.mill.full.push(storage)
		} else {
			cs.mill.reclaimEmpty(storage)
		}
	}

	if storage := cs.release.storage; storage != nil {
		if n := MagazineSize + cs.release.cursor; n > 0 {
			storage.populated = uint32(n)
			cs.mill.full.push(storage)
		} else {
			cs.mill.reclaimEmpty(storage)
		}
	}

	*cs = classCache{}
}
