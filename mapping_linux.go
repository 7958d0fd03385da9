//go:build linux

package classmill

import (
	"golang.org/x/sys/unix"
)

// commitFileRegion backs an already-reserved range with pages from
// fd, at the same fixed address reserveRegion handed out. The
// friendly unix.Mmap wrapper always asks the kernel to pick its own
// address, so swapping the backing store of a specific address range
// needs the raw mmap(2) syscall with MAP_FIXED — the same technique
// gvisor and wazero's low-level memory code use when they need an
// exact address.
func (unixMapper) commitFileRegion(fd int, offset int64, base, size uintptr) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		base,
		size,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		uintptr(offset),
	)
	if errno != 0 {
		return errno
	}
	return nil
}
