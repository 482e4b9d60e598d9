package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KeyOf([]byte("a"), []byte("b")), KeyOf([]byte("a"), []byte("b")))
	assert.NotEqual(t, KeyOf([]byte("ab"), []byte("c")), KeyOf([]byte("a"), []byte("bc")))
	assert.NotEqual(t, KeyOf(nil, []byte("x")), KeyOf([]byte("x")))
}

func TestLRU_GetPut(t *testing.T) {
	t.Parallel()

	lru := NewLRU[string](0)
	key := KeyOf([]byte("code"))

	_, ok := lru.Get(key)
	assert.False(t, ok)

	lru.Put(key, "rewritten", 9)

	got, ok := lru.Get(key)
	require.True(t, ok)
	assert.Equal(t, "rewritten", got)

	stats := lru.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(9), stats.CurrentSize)
	assert.Equal(t, int64(DefaultMaxSize), stats.MaxSize)
	assert.InDelta(t, 0.5, stats.HitRate(), 1e-9)
}

func TestLRU_EvictsLeastUsed(t *testing.T) {
	t.Parallel()

	lru := NewLRU[int](100)
	a, b, c := KeyOf([]byte("a")), KeyOf([]byte("b")), KeyOf([]byte("c"))

	lru.Put(a, 1, 40)
	lru.Put(b, 2, 40)

	_, ok := lru.Get(a)
	require.True(t, ok)

	lru.Put(c, 3, 40)

	_, ok = lru.Get(b)
	assert.False(t, ok)

	_, ok = lru.Get(a)
	assert.True(t, ok)

	_, ok = lru.Get(c)
	assert.True(t, ok)

	assert.Equal(t, int64(80), lru.Stats().CurrentSize)
}

func TestLRU_OversizedValueIsSkipped(t *testing.T) {
	t.Parallel()

	lru := NewLRU[int](10)
	key := KeyOf([]byte("big"))

	lru.Put(key, 1, 11)

	_, ok := lru.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, lru.Stats().Entries)
}

func TestLRU_PutReplacesValue(t *testing.T) {
	t.Parallel()

	lru := NewLRU[string](100)
	key := KeyOf([]byte("k"))

	lru.Put(key, "old", 10)
	lru.Put(key, "new", 30)

	got, ok := lru.Get(key)
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, int64(30), lru.Stats().CurrentSize)
}

func TestLRU_Clear(t *testing.T) {
	t.Parallel()

	lru := NewLRU[int](100)
	lru.Put(KeyOf([]byte("a")), 1, 10)
	lru.Clear()

	stats := lru.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.CurrentSize)
	assert.Zero(t, Stats{}.HitRate())
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	lru := NewLRU[int](1 << 10)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 100 {
				key := KeyOf([]byte{byte(i), byte(j)})
				lru.Put(key, j, 16)
				lru.Get(key)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, lru.Stats().CurrentSize, int64(1<<10))
}
