//go:build darwin

package classmill

// commitFileRegion has no portable implementation on Darwin through
// golang.org/x/sys/unix alone: the package's Mmap wrapper never
// accepts a caller-chosen address, and re-backing an already-reserved
// fixed range with file pages needs MAP_FIXED, which this package
// only wires up for Linux (see mapping_linux.go). Classes configured
// with the file mapper are therefore unsupported on Darwin: register
// accepts them, and the first allocation that needs a chunk aborts
// with a ResourceError wrapping this ConfigError instead of silently
// mapping at the wrong address.
func (unixMapper) commitFileRegion(fd int, offset int64, base, size uintptr) error {
	return abortConfig("file-backed mapper is not supported on this platform")
}
