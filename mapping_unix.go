//go:build linux || darwin

package classmill

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// unixMapper implements regionMapper with golang.org/x/sys/unix, the
// same dependency this pack reaches for whenever raw OS memory
// primitives are needed (hal-memory-style region allocators, uffd
// backed allocators, FUSE page caches). reserveRegion maps PROT_NONE
// so the range carries no access rights until a later commit call
// raises it; commitRegion then simply mprotects the same address
// range to read-write, which is enough for the anonymous case because
// the address is never remapped, only reprotected. Linux zero-fills
// freshly faulted anonymous pages, which is what gives zero_init
// classes their "fresh memory is already zero" fast path.
type unixMapper struct{}

func newUnixMapper() *unixMapper { return &unixMapper{} }

func (unixMapper) pageSize() uintptr {
	return uintptr(unix.Getpagesize())
}

func sliceFromAddr(base, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(base)), int(size))
}

func (unixMapper) reserveRegion(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	base := uintptr(unsafe.Pointer(&b[0]))
	if base == 0 {
		// mmap never returns the zero address on success; guard
		// anyway per §4.1's contract.
		_ = unix.Munmap(b)
		return 0, unix.EINVAL
	}
	return base, nil
}

func (unixMapper) commitRegion(base, size uintptr) error {
	return unix.Mprotect(sliceFromAddr(base, size), unix.PROT_READ|unix.PROT_WRITE)
}

func (unixMapper) releaseRegion(base, size uintptr) error {
	if size == 0 {
		return nil
	}
	return unix.Munmap(sliceFromAddr(base, size))
}
