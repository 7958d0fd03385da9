package classmill

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestClass(t *testing.T, size uintptr, zeroInit bool) Class {
	t.Helper()
	class, err := register(Config{Name: t.Name(), Size: size, ZeroInit: zeroInit})
	require.NoError(t, err)
	return class
}

func TestLocalCacheAllocateReleaseRoundTrip(t *testing.T) {
	class := registerTestClass(t, 40, false)
	cache := &LocalCache{}

	// Allocate more than one magazine's worth to force at least one
	// slow-path refill.
	n := int(MagazineSize)*2 + 3
	ptrs := make([]unsafe.Pointer, 0, n)
	seen := make(map[unsafe.Pointer]bool, n)
	for i := 0; i < n; i++ {
		ptr := cache.Allocate(class)
		require.False(t, seen[ptr], "allocate must never hand out a live pointer twice")
		seen[ptr] = true
		ptrs = append(ptrs, ptr)
	}

	for _, ptr := range ptrs {
		cache.Release(class, ptr)
	}
}

func TestLocalCacheReleaseDetectsClassMismatch(t *testing.T) {
	a := registerTestClass(t, 32, false)
	b := registerTestClass(t, 32, false)
	cache := &LocalCache{}

	ptr := a.Allocate()
	assert.Panics(t, func() {
		cache.Release(b, ptr)
	}, "releasing through the wrong class handle must abort")
}

func TestLocalCacheDetachPreservesOutstandingCapacity(t *testing.T) {
	class := registerTestClass(t, 16, false)
	cache := &LocalCache{}

	// Allocate once, so the cache's alloc magazine for this class is
	// bound and partially drained but not exhausted.
	_ = cache.Allocate(class)
	cache.Detach()

	state := classByID(class.id)
	require.NotNil(t, state)

	_, ok := state.mill.full.tryPop()
	assert.True(t, ok, "detach must push a still-populated alloc magazine's storage onto the full stack")
}

func TestLocalCacheGrowsPastInlineCapacity(t *testing.T) {
	cache := &LocalCache{}
	var last Class
	for i := 0; i < inlineCacheCap+2; i++ {
		last = registerTestClass(t, 8, false)
	}

	ptr := cache.Allocate(last)
	require.NotNil(t, ptr)
	cache.Release(last, ptr)
}
