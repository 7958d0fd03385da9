//go:build !linux && !darwin

package classmill

import "errors"

// unixMapper is a stub on platforms this package has no mapping
// primitives for. The core allocator algorithms (magazines, the
// lock-free stack, span layout arithmetic) are portable; only the
// OS boundary in §4.1 is platform-specific, and this package only
// grounds it on Linux and Darwin via golang.org/x/sys/unix.
type unixMapper struct{}

func newUnixMapper() *unixMapper { return &unixMapper{} }

var errUnsupportedPlatform = errors.New("classmill: unsupported platform")

func (unixMapper) pageSize() uintptr { return 4096 }

func (unixMapper) reserveRegion(size uintptr) (uintptr, error) {
	return 0, errUnsupportedPlatform
}

func (unixMapper) commitRegion(base, size uintptr) error {
	return errUnsupportedPlatform
}

func (unixMapper) commitFileRegion(fd int, offset int64, base, size uintptr) error {
	return errUnsupportedPlatform
}

func (unixMapper) releaseRegion(base, size uintptr) error {
	return errUnsupportedPlatform
}
