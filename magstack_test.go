package classmill

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagazineStackPushPopOrder(t *testing.T) {
	var s magazineStack
	a, b, c := &magazineStorage{}, &magazineStorage{}, &magazineStorage{}

	s.push(a)
	s.push(b)
	s.push(c)

	got, ok := s.pop()
	require.True(t, ok)
	assert.Same(t, c, got, "pop must return the most recently pushed storage")

	got, ok = s.pop()
	require.True(t, ok)
	assert.Same(t, b, got)

	got, ok = s.pop()
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = s.pop()
	assert.False(t, ok, "pop on an empty stack must report ok=false, not block or panic")
}

func TestMagazineStackTryPopEmpty(t *testing.T) {
	var s magazineStack
	_, ok := s.tryPop()
	assert.False(t, ok)
}

func TestMagazineStackPackRoundTrip(t *testing.T) {
	storage := &magazineStorage{}
	packed := lfPack(storage, 12345)
	top, generation := lfUnpack(packed)
	assert.Same(t, storage, top)
	assert.Equal(t, uint64(12345), generation)
}

func TestMagazineStackConcurrentPushPop(t *testing.T) {
	const n = 2000
	var s magazineStack
	storages := make([]*magazineStorage, n)
	for i := range storages {
		storages[i] = &magazineStorage{}
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for _, storage := range storages {
		storage := storage
		go func() {
			defer wg.Done()
			s.push(storage)
		}()
	}
	wg.Wait()

	seen := make(map[*magazineStorage]bool, n)
	for {
		top, ok := s.pop()
		if !ok {
			break
		}
		require.False(t, seen[top], "the same storage was popped twice")
		seen[top] = true
	}
	assert.Len(t, seen, n, "every pushed storage must be popped exactly once")
}
