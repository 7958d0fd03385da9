//go:build linux

package classmill

import "golang.org/x/sys/unix"

// currentThreadID returns the kernel thread id of the calling OS
// thread. It is a real syscall, made by api.go on every
// Class.Allocate/Class.Release call to find the thread's cache entry;
// LocalCache's own allocate/release path never calls it.
func currentThreadID() uint64 {
	return uint64(unix.Gettid())
}
