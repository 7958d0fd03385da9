// Package classmill implements a class-segregated allocator for
// fixed-size objects.
//
// Callers register an allocation class with Register, which fixes an
// object size and a few flags and hands back an opaque Class handle.
// Objects then flow through the class's two hot-path operations,
// Class.Allocate and Class.Release.
//
// The design mirrors a thread-caching slab allocator: a per-thread
// cache of small fixed-capacity "magazines" backs the fast path, a
// lock-free stack of magazine storages is shared across threads, and
// a span-based address-space layout lets the release path identify
// the owning class of any pointer in O(1) and catch class/size
// mismatches before they corrupt memory.
//
// classmill is not a general-purpose malloc replacement: classes have
// one fixed size each, magazines are single-threaded while checked
// out, spans are never defragmented, and chunks are never returned to
// the OS.
package classmill
