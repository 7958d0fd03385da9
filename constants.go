//go:build !slitter_small

package classmill

// Tunable layout constants, as named in the external interface. The
// "small constants" build profile (see constants_small.go, selected
// with the slitter_small build tag) shrinks these for test machines.
const (
	// MagazineSize is the fixed capacity of a magazine, in object
	// pointers.
	MagazineSize = 30

	// DataAlignment is the alignment, and size, of a chunk's data
	// region. Chunk base addresses are always a multiple of this.
	DataAlignment = 1 << 30 // 1 GiB

	// GuardPageSize is the size of a chunk's uncommitted guard page,
	// placed between the metadata page and the data region.
	GuardPageSize = 2 << 20 // 2 MiB

	// MetadataPageSize is the size of the page holding a chunk's
	// dense array of span metadata entries.
	MetadataPageSize = 2 << 20 // 2 MiB

	// SpanAlignment is the size of a span: the unit a chunk's data
	// region is subdivided into.
	SpanAlignment = 16 << 10 // 16 KiB

	// CachePrealloc is the number of classes a thread cache keeps
	// inline, without a heap-allocated growth array.
	CachePrealloc = 15
)
