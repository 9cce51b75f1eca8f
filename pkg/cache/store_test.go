package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/grabvid/pkg/model"
)

func catalog(title string) *model.VariantCatalog {
	return &model.VariantCatalog{Title: title, Variants: []model.VariantDescriptor{}}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "https://example.com/Watch?v=AbC", NormalizeKey("  https://example.com/Watch?v=AbC\n"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestNew_PicksImplementation(t *testing.T) {
	_, isMemory := New(Options{}).(*MemoryStore)
	assert.True(t, isMemory)

	_, isLRU := New(Options{MaxEntries: 10}).(*LRUStore)
	assert.True(t, isLRU)

	_, isLRU = New(Options{TTL: time.Minute}).(*LRUStore)
	assert.True(t, isLRU)
}

func TestStores_GetPut(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"lru":    NewLRUStore(10, time.Hour),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Get("https://example.com/a")
			assert.False(t, ok)

			first := catalog("first")
			s.Put(" https://example.com/a ", first)

			got, ok := s.Get("https://example.com/a")
			require.True(t, ok)
			assert.Same(t, first, got)

			_, ok = s.Get("https://EXAMPLE.com/a")
			assert.False(t, ok, "keys are case-sensitive")

			second := catalog("second")
			s.Put("https://example.com/a", second)
			got, _ = s.Get("https://example.com/a")
			assert.Same(t, second, got, "last writer wins")

			s.Put("https://example.com/nil", nil)
			_, ok = s.Get("https://example.com/nil")
			assert.False(t, ok, "nil catalogs are ignored")

			assert.Equal(t, 1, s.Len())
		})
	}
}

func TestLRUStore_EvictsOldest(t *testing.T) {
	s := NewLRUStore(2, 0)
	s.Put("a", catalog("a"))
	s.Put("b", catalog("b"))
	_, _ = s.Get("a")
	s.Put("c", catalog("c"))

	_, ok := s.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestLRUStore_Expires(t *testing.T) {
	s := NewLRUStore(0, 20*time.Millisecond)
	s.Put("a", catalog("a"))
	_, ok := s.Get("a")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := s.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStores_ConcurrentAccess(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"lru":    NewLRUStore(0, 0),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			const workers = 16
			const keys = 8
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 200; i++ {
						key := fmt.Sprintf("https://example.com/%d", i%keys)
						s.Put(key, catalog(fmt.Sprintf("w%d-%d", w, i)))
						if got, ok := s.Get(key); ok {
							assert.NotNil(t, got)
						}
					}
				}(w)
			}
			wg.Wait()

			assert.Equal(t, keys, s.Len())
			for i := 0; i < keys; i++ {
				got, ok := s.Get(fmt.Sprintf("https://example.com/%d", i))
				require.True(t, ok)
				assert.NotEmpty(t, got.Title)
			}
		})
	}
}
