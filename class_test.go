package classmill

import (
	"runtime"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsInvalidConfig(t *testing.T) {
	_, err := Register(Config{Size: 0})
	assert.Error(t, err)

	_, err = Register(Config{Size: 8, Mapper: MapperKind(99)})
	assert.Error(t, err)

	_, err = Register(Config{Size: uintptr(SpanAlignment) + 1})
	assert.Error(t, err, "an object larger than a span can never be bump-allocated")
}

func TestClassAllocateReleaseViaThreadCache(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer DetachCurrentThread()

	class, err := Register(Config{Name: "integration", Size: 24, ZeroInit: true})
	require.NoError(t, err)

	ptr := class.Allocate()
	require.NotNil(t, ptr)
	class.Release(ptr)

	// The object handed out after a release must read as zero for a
	// zero_init class.
	recycled := class.Allocate()
	buf := unsafe.Slice((*byte)(recycled), 24)
	for _, b := range buf {
		assert.Zero(t, b)
	}
	class.Release(recycled)
}

func TestClassReleaseAcrossClassesAborts(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer DetachCurrentThread()

	base, err := Register(Config{Name: "base", Size: 32, ZeroInit: true})
	require.NoError(t, err)
	derived, err := Register(Config{Name: "derived", Size: 64, ZeroInit: true})
	require.NoError(t, err)

	ptr := derived.Allocate()
	assert.Panics(t, func() {
		base.Release(ptr)
	}, "releasing a derived object through the base class must abort, per the demo.c MISMATCH scenario")
}

func TestConcurrentWorkersAlternatingAllocateRelease(t *testing.T) {
	class, err := Register(Config{Name: "stress", Size: 48})
	require.NoError(t, err)

	const workers = 8
	const iterations = 2000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer DetachCurrentThread()

			for j := 0; j < iterations; j++ {
				ptr := class.Allocate()
				class.Release(ptr)
			}
		}()
	}
	wg.Wait()
}
