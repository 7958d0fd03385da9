//go:build !linux

package classmill

// currentThreadID has no portable equivalent outside Linux through
// this package's dependencies (Darwin has no golang.org/x/sys/unix
// Gettid). api.go's thread-id-keyed cache therefore degrades to a
// single shared LocalCache (tid 0) on these platforms; callers are
// responsible for their own thread affinity, same as the mapping gaps
// in mapping_darwin.go and mapping_other.go.
func currentThreadID() uint64 {
	return 0
}
