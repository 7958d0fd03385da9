package classmill

// MapperKind selects how a class's chunks get their data region
// backed: the default anonymous mapper, or a file mapper pinning the
// class to the contents of a file descriptor.
type MapperKind int

const (
	// AnonymousMapper backs chunks with anonymous, zero-filled
	// pages. This is the default.
	AnonymousMapper MapperKind = iota
	// FileMapper backs a class's chunks with pages from a file
	// descriptor; see Config.FileDescriptor/Config.FileOffset.
	FileMapper
)

// Config describes a single allocation class at registration time.
// Once registered, a class's configuration never changes.
type Config struct {
	// Name is an optional human-readable label stored with the
	// class. It has no effect on behavior.
	Name string

	// Size is the number of bytes each object in this class
	// occupies. Must be > 0. Objects are only guaranteed 8-byte
	// alignment.
	Size uintptr

	// ZeroInit requests that every object this class hands out,
	// whether freshly carved from a span or recycled through a
	// magazine, reads as all-zero bytes.
	ZeroInit bool

	// Mapper selects the chunk backing strategy.
	Mapper MapperKind

	// FileDescriptor and FileOffset are required when Mapper is
	// FileMapper: the class's chunks are backed by this fd's
	// contents starting at this byte offset. The file must be at
	// least DataAlignment bytes past the offset.
	FileDescriptor int
	FileOffset     int64
}

// Class is an opaque, immutable handle to a registered allocation
// class. The zero Class is never valid; class ids are assigned
// densely starting at 1.
type Class struct {
	id uint32
}

// ID returns the class's non-zero identifier.
func (c Class) ID() uint32 { return c.id }

// classState is the mutable, process-lifetime state behind a Class
// handle: its immutable config plus its mill. classState values are
// never freed, matching the spec's "a class lives for the rest of the
// process" lifecycle.
type classState struct {
	id     uint32
	config Config
	mill   mill
}
