package classmill

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassState(id uint32, size uintptr, zeroInit bool) *classState {
	state := &classState{id: id, config: Config{Size: size, ZeroInit: zeroInit}}
	state.mill.init(state)
	return state
}

func TestMillRefillBumpFillsFreshMagazine(t *testing.T) {
	state := newTestClassState(1, 48, false)

	mag := state.mill.refill()
	assert.Equal(t, int32(MagazineSize), mag.cursor)

	seen := make(map[unsafe.Pointer]bool)
	for i := 0; i < MagazineSize; i++ {
		ptr, ok := mag.get()
		require.True(t, ok)
		require.False(t, seen[ptr], "bump fill must never hand out the same address twice")
		seen[ptr] = true
	}
	assert.True(t, mag.isExhausted())
}

func TestMillRefillPrefersFullStackOverBumpAlloc(t *testing.T) {
	state := newTestClassState(2, 32, false)

	first := state.mill.refill()
	chunksAfterFirst := len(state.mill.chunks)

	drained := state.mill.drain(first.storage)
	assert.NotSame(t, first.storage, drained, "drain must hand back a different (fresh) storage")

	second := state.mill.refill()
	assert.Same(t, first.storage, second.storage, "refill must prefer a storage off the full stack over bump-allocating")
	assert.Equal(t, len(state.mill.chunks), chunksAfterFirst, "popping from the full stack must not reserve a new chunk")
}

func TestMillZeroInitRecyclesOnRefillFromFullStack(t *testing.T) {
	const size = 16
	state := newTestClassState(3, size, true)

	mag := state.mill.refill()
	addrs := make([]unsafe.Pointer, 0, MagazineSize)
	for {
		ptr, ok := mag.get()
		if !ok {
			break
		}
		addrs = append(addrs, ptr)
		fillBytes(ptr, size, 0xFF)
	}
	for _, ptr := range addrs {
		assert.False(t, allZero(ptr, size), "precondition: written bytes must be non-zero before recycling")
	}

	state.mill.drain(mag.storage)

	recycled := state.mill.refill()
	assert.Same(t, mag.storage, recycled.storage)
	for {
		ptr, ok := recycled.get()
		if !ok {
			break
		}
		assert.True(t, allZero(ptr, size), "zero_init must re-zero every object recycled off the full stack")
	}
}

func TestMillReclaimEmptyIsReusedByRefill(t *testing.T) {
	state := newTestClassState(4, 24, false)

	mag := state.mill.refill()
	storage := mag.storage
	state.mill.reclaimEmpty(storage)

	again := state.mill.refill()
	assert.Same(t, storage, again.storage, "refill should reuse a reclaimed empty storage instead of allocating a fresh one")
	assert.Equal(t, int32(MagazineSize), again.cursor)
}

func fillBytes(ptr unsafe.Pointer, size int, b byte) {
	buf := unsafe.Slice((*byte)(ptr), size)
	for i := range buf {
		buf[i] = b
	}
}

func allZero(ptr unsafe.Pointer, size int) bool {
	buf := unsafe.Slice((*byte)(ptr), size)
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
