package classmill

import "unsafe"

// spanMetadata is the per-span record a chunk's metadata page holds
// one of, indexed densely by span position within the chunk's data
// region. A span allocates fresh objects by monotonically advancing
// bumpPtr toward bumpLimit; once bumpPtr reaches bumpLimit the span
// never refills directly, new objects only flow back in through
// magazines.
//
// Invariant: spanBegin <= bumpPtr <= bumpLimit, spanBegin is
// SpanAlignment-aligned, and classID != 0.
type spanMetadata struct {
	classID   uint32
	_         uint32 // padding to keep the uintptr fields aligned
	bumpPtr   uintptr
	bumpLimit uintptr
	spanBegin uintptr
}

var spanMetadataSize = unsafe.Sizeof(spanMetadata{})

// spanMetadataAt returns a pointer to the span metadata entry at
// index within the chunk whose metadata page begins at metaBase.
func spanMetadataAt(metaBase uintptr, index uintptr) *spanMetadata {
	return (*spanMetadata)(unsafe.Pointer(metaBase + index*spanMetadataSize))
}

// lookupSpan derives, from a raw object pointer, the chunk base and a
// pointer to the owning span's metadata entry. This is the O(1)
// class-lookup arithmetic described in §3 and §4.6: mask the pointer
// down to its DataAlignment-aligned chunk base, then index the
// metadata page sitting just below that base.
//
// Weakening DataAlignment/SpanAlignment/GuardPageSize/
// MetadataPageSize's alignment discipline anywhere in this package
// invalidates this arithmetic; see constants.go.
func lookupSpan(ptr unsafe.Pointer) (chunkBase uintptr, meta *spanMetadata) {
	addr := uintptr(ptr)
	chunkBase = addr &^ (uintptr(DataAlignment) - 1)
	spanIndex := (addr & (uintptr(DataAlignment) - 1)) / SpanAlignment
	metaBase := chunkBase - (GuardPageSize + MetadataPageSize)
	meta = spanMetadataAt(metaBase, spanIndex)
	return chunkBase, meta
}

// spansPerChunk is the number of SpanAlignment-sized slots in a
// chunk's data region.
const spansPerChunk = uintptr(DataAlignment) / SpanAlignment

// chunk is a DataAlignment-aligned address-space range reserved from
// the OS for exactly one class: from low to high address, a metadata
// page holding spansPerChunk spanMetadata entries, a guard page, and a
// data region subdivided into spansPerChunk span-sized slots. The
// guard page is never committed, so stray accesses running below the
// data region fault.
type chunk struct {
	reserveBase uintptr // base of the whole OS reservation
	reserveSize uintptr // size of the whole OS reservation
	dataBase    uintptr // DataAlignment-aligned data region base
	metaBase    uintptr // dataBase - (GuardPageSize + MetadataPageSize)
	nextSpan    uintptr // index of the next uncarved span, 0..spansPerChunk
}

// reserveChunk reserves a fresh chunk from the OS via m, committing
// its metadata page (anonymous, regardless of the class's mapper) and
// the data region through m, file-backed when fileBacking is non-nil
// and anonymous otherwise. It does
// not carve any spans; callers carve with (*chunk).carveSpan.
func reserveChunk(m regionMapper, classID uint32, fileBacking *fileBacking) (*chunk, error) {
	// Reserve 2x DataAlignment plus the prefix so there is always room
	// to find a DataAlignment-aligned data base with GuardPageSize +
	// MetadataPageSize of headroom below it, then trim the slack.
	reserveSize := uintptr(2*DataAlignment + GuardPageSize + MetadataPageSize)
	reserveBase, err := m.reserveRegion(reserveSize)
	if err != nil {
		return nil, err
	}

	prefix := uintptr(GuardPageSize + MetadataPageSize)
	dataBase := alignUp(reserveBase+prefix, DataAlignment)
	// Layout is [metadata][guard][data]: the guard page sits directly
	// below dataBase, and the metadata page sits below that, so this
	// must agree with lookupSpan's chunkBase - (GuardPageSize +
	// MetadataPageSize) arithmetic exactly.
	metaBase := dataBase - GuardPageSize - MetadataPageSize

	// Trim the unused head and tail back to the OS.
	if head := dataBase - prefix - reserveBase; head > 0 {
		if err := m.releaseRegion(reserveBase, head); err != nil {
			return nil, err
		}
	}
	tailBase := dataBase + DataAlignment
	tailSize := (reserveBase + reserveSize) - tailBase
	if tailSize > 0 {
		if err := m.releaseRegion(tailBase, tailSize); err != nil {
			return nil, err
		}
	}

	if err := m.commitRegion(metaBase, MetadataPageSize); err != nil {
		return nil, err
	}

	if fileBacking != nil {
		if err := m.commitFileRegion(fileBacking.fd, fileBacking.offset, dataBase, DataAlignment); err != nil {
			return nil, err
		}
	} else {
		if err := m.commitRegion(dataBase, DataAlignment); err != nil {
			return nil, err
		}
	}

	return &chunk{
		reserveBase: dataBase - prefix,
		reserveSize: prefix + DataAlignment,
		dataBase:    dataBase,
		metaBase:    metaBase,
	}, nil
}

// exhausted reports whether every span slot in the chunk has been
// carved out already.
func (c *chunk) exhausted() bool {
	return c.nextSpan >= spansPerChunk
}

// carveSpan stamps the next uncarved span's metadata entry for
// classID, before any object in that span is handed out, and returns
// a pointer to it. Precondition: !c.exhausted().
func (c *chunk) carveSpan(classID uint32) *spanMetadata {
	index := c.nextSpan
	c.nextSpan++

	begin := c.dataBase + index*SpanAlignment
	meta := spanMetadataAt(c.metaBase, index)
	*meta = spanMetadata{
		classID:   classID,
		bumpPtr:   begin,
		bumpLimit: begin + SpanAlignment,
		spanBegin: begin,
	}
	return meta
}

// bumpAlloc advances meta's bump pointer by size, rounded up to an
// 8-byte stride so every returned address is at least 8-byte aligned
// per §6, and returns the object's address, or ok=false if the span
// has no room left.
func (meta *spanMetadata) bumpAlloc(size uintptr) (addr uintptr, ok bool) {
	stride := alignUp(size, 8)
	if meta.bumpPtr+stride > meta.bumpLimit {
		return 0, false
	}
	addr = meta.bumpPtr
	meta.bumpPtr += stride
	return addr, true
}

// fileBacking names the file descriptor and offset a chunk's data
// region should be backed by, for classes registered with the file
// mapper.
type fileBacking struct {
	fd     int
	offset int64
}
