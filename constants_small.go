//go:build slitter_small

package classmill

// Small-constants build profile: same names, test-machine-sized
// values, used to keep chunk reservations and magazine stress tests
// cheap under `go test -tags slitter_small ./...`.
const (
	MagazineSize     = 6
	DataAlignment    = 2 << 20 // 2 MiB
	GuardPageSize    = 16 << 10
	MetadataPageSize = 16 << 10
	SpanAlignment    = 4 << 10
	CachePrealloc    = 3
)
