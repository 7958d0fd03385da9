package classmill

import "unsafe"

// magazineStorage is the backing array of a magazine: a fixed
// capacity of object pointers plus a link field used only while the
// storage is queued on a lock-free magazineStack. Storages are
// immortal once created — the allocator never frees one — which is
// what makes it safe for a popped pointer to always be dereferenced
// without hazard pointers or any other reclamation scheme.
type magazineStorage struct {
	items [MagazineSize]unsafe.Pointer
	link  *magazineStorage

	// populated counts how many of items are valid entries. It is
	// only meaningful while a storage sits on the full or
	// partialEmpty stacks (mill.go), where it mirrors the original
	// design's magazine_storage.num_allocated_slow field. Refill's
	// bump fill and drain always leave populated == MagazineSize, but
	// LocalCache.Detach pushes partially used magazines onto the full
	// stack with fewer, and reclaimEmpty sets it to 0.
	populated uint32
}

// magazine pairs a cursor with a magazineStorage. A single
// convention serves both the allocation role and the release role, by
// giving the cursor a role-specific sign:
//
//   - alloc role: cursor counts down from a populated count to 0;
//     cursor == 0 means empty (exhausted).
//   - release role: cursor counts up from -MagazineSize to 0; cursor
//     == 0 means full (exhausted).
//
// Either way, a single comparison (cursor == 0) answers isExhausted.
// This is the fast path's central invariant.
type magazine struct {
	cursor  int32
	storage *magazineStorage
}

// newAllocMagazine wraps storage as an alloc-role magazine populated
// with the first n items (0 <= n <= MagazineSize).
func newAllocMagazine(storage *magazineStorage, n int32) magazine {
	return magazine{cursor: n, storage: storage}
}

// newReleaseMagazine wraps storage as a fresh, empty release-role
// magazine.
func newReleaseMagazine(storage *magazineStorage) magazine {
	return magazine{cursor: -MagazineSize, storage: storage}
}

func (m *magazine) isExhausted() bool {
	return m.cursor == 0
}

// prefetchSink exists only so the read performed by touchPrefetch
// cannot be discarded as dead code; its value is never meaningful.
var prefetchSink uintptr

// touchPrefetch approximates the fast path's "prefetch the next
// slot's target pointee" hint. Go offers no portable prefetch
// intrinsic without assembly, so this performs the equivalent real
// load instead: the address is guaranteed to fall inside memory this
// package already committed (a span's data region), so the read is
// always safe, and on hardware that would otherwise stall on the
// following pop it warms the cache line the same way the hinted
// instruction would.
func touchPrefetch(slot unsafe.Pointer) {
	if slot == nil {
		return
	}
	prefetchSink += *(*uintptr)(slot)
}

// prefetchIndex computes the "two slots ahead" index described for
// the allocation fast path, saturating instead of wrapping when
// cursor is 1 or 2. cursor is the pre-decrement cursor value.
func prefetchIndex(cursor int32) int32 {
	cu := uint32(cursor)
	next := cu - 2
	if next > cu {
		// Unsigned underflow: clamp back into range.
		next++
	}
	return int32(next)
}

// getNonEmpty pops the top of an alloc-role magazine. Precondition:
// !isExhausted(). The returned pointer is guaranteed non-nil; a nil
// slot in a magazine that should be populated indicates corruption.
func (m *magazine) getNonEmpty() unsafe.Pointer {
	idx := prefetchIndex(m.cursor)
	touchPrefetch(m.storage.items[idx])

	m.cursor--
	ptr := m.storage.items[m.cursor]
	if ptr == nil {
		abortInvariant("popped nil pointer from a non-empty magazine")
	}
	return ptr
}

// putNonFull pushes ptr onto a release-role magazine. Precondition:
// !isExhausted().
func (m *magazine) putNonFull(ptr unsafe.Pointer) {
	idx := MagazineSize + m.cursor
	m.storage.items[idx] = ptr
	m.cursor++
}

// get is the safe wrapper around getNonEmpty: it returns (nil, false)
// instead of the precondition violation.
func (m *magazine) get() (unsafe.Pointer, bool) {
	if m.isExhausted() {
		return nil, false
	}
	return m.getNonEmpty(), true
}

// put is the safe wrapper around putNonFull: it hands ptr back to the
// caller instead of violating the precondition.
func (m *magazine) put(ptr unsafe.Pointer) (unsafe.Pointer, bool) {
	if m.isExhausted() {
		return ptr, false
	}
	m.putNonFull(ptr)
	return nil, true
}
