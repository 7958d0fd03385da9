package classmill

import (
	"sync"
	"unsafe"
)

// mill is the per-class machinery described in §4.4: it supplies
// populated magazines to threads refilling their allocation cache,
// accepts full magazines from threads draining their release cache,
// and is the only place that creates new objects, by bump-allocating
// from the class's spans.
type mill struct {
	class *classState

	full         magazineStack // populated magazines, ready to satisfy a refill
	partialEmpty magazineStack // drained empty storages, ready for reuse

	mu           sync.Mutex // protects the fields below: span bump-allocation is a short critical section
	mapper       regionMapper
	fileBacking  *fileBacking
	chunks       []*chunk
	currentChunk *chunk
	currentSpan  *spanMetadata
}

func (m *mill) init(class *classState) {
	m.class = class
	m.mapper = defaultMapper
	if class.config.Mapper == FileMapper {
		m.fileBacking = &fileBacking{fd: class.config.FileDescriptor, offset: class.config.FileOffset}
	}
}

// ensureSpanLocked returns a span with room for at least one more
// object, carving a fresh span (and, if needed, reserving a fresh
// chunk) when the current one is exhausted. Callers must hold m.mu.
func (m *mill) ensureSpanLocked() *spanMetadata {
	for {
		if m.currentSpan != nil && m.currentSpan.bumpPtr+alignUp(m.class.config.Size, 8) <= m.currentSpan.bumpLimit {
			return m.currentSpan
		}
		if m.currentChunk == nil || m.currentChunk.exhausted() {
			c, err := reserveChunk(m.mapper, m.class.id, m.fileBacking)
			if err != nil {
				abortResource("reserve chunk", err)
			}
			m.chunks = append(m.chunks, c)
			m.currentChunk = c
		}
		m.currentSpan = m.currentChunk.carveSpan(m.class.id)
	}
}

// bumpFillLocked bump-allocates up to MagazineSize fresh objects into
// storage, crossing into new spans and chunks as needed. Fresh
// objects from anonymous mappings are already zero-filled by the OS,
// so they are not zeroed here; file-backed pages carry the file's
// contents, so zero_init classes using the file mapper zero each
// fresh object explicitly.
func (m *mill) bumpFillLocked(storage *magazineStorage) {
	size := m.class.config.Size
	zeroFresh := m.class.config.ZeroInit && m.fileBacking != nil
	var n uint32
	for n < MagazineSize {
		span := m.ensureSpanLocked()
		addr, ok := span.bumpAlloc(size)
		if !ok {
			// ensureSpanLocked guarantees room; a failure here
			// would mean spanMetadata bookkeeping is corrupt.
			abortInvariant("span bump allocation failed on a non-exhausted span")
		}
		if zeroFresh {
			zeroMemory(unsafe.Pointer(addr), size)
		}
		storage.items[n] = unsafe.Pointer(addr)
		n++
	}
	storage.populated = n
}

func zeroMemory(ptr unsafe.Pointer, size uintptr) {
	clear(unsafe.Slice((*byte)(ptr), int(size)))
}

// zeroRecycled re-zeroes every object in storage. Called only for
// zero_init classes, only on magazines coming back from the full
// stack (objects a caller previously wrote to and released) — fresh,
// never-used objects are already zero courtesy of the OS.
func (m *mill) zeroRecycled(storage *magazineStorage) {
	size := m.class.config.Size
	for i := uint32(0); i < storage.populated; i++ {
		zeroMemory(storage.items[i], size)
	}
}

// refill produces a populated alloc-role magazine: a populated
// magazine from the full stack if one is available (re-zeroing it
// first for zero_init classes, per §4.5's recycle contract), or a
// freshly bump-allocated one otherwise.
func (m *mill) refill() magazine {
	if storage, ok := m.full.tryPop(); ok {
		if m.class.config.ZeroInit {
			m.zeroRecycled(storage)
		}
		return newAllocMagazine(storage, int32(storage.populated))
	}

	storage, ok := m.partialEmpty.tryPop()
	if !ok {
		storage = &magazineStorage{}
	}

	m.mu.Lock()
	m.bumpFillLocked(storage)
	m.mu.Unlock()

	return newAllocMagazine(storage, int32(storage.populated))
}

// drain accepts a full release-role magazine's storage, pushes it
// onto the full stack so a future refill can hand it back out, and
// returns a fresh empty storage for the caller's release cache.
func (m *mill) drain(full *magazineStorage) *magazineStorage {
	full.populated = MagazineSize
	m.full.push(full)

	if storage, ok := m.partialEmpty.tryPop(); ok {
		return storage
	}
	return &magazineStorage{}
}

// reclaimEmpty returns a drained, now-empty alloc-role storage to the
// mill for reuse, instead of discarding it. Called when the allocate
// slow path swaps out a magazine that ran completely dry.
func (m *mill) reclaimEmpty(storage *magazineStorage) {
	storage.populated = 0
	m.partialEmpty.push(storage)
}
