// Package cache holds fetched variant catalogs keyed by normalized source URL.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cperrin88/grabvid/pkg/model"
)

// Store is a concurrency-safe catalog cache.
type Store interface {
	Get(url string) (*model.VariantCatalog, bool)
	Put(url string, catalog *model.VariantCatalog)
	Len() int
}

// Options bounds a cache created with New. Zero values mean unbounded.
type Options struct {
	MaxEntries int
	TTL        time.Duration
}

// New returns an unbounded MemoryStore when opts is zero and an LRUStore otherwise.
func New(opts Options) Store {
	if opts.MaxEntries <= 0 && opts.TTL <= 0 {
		return NewMemoryStore()
	}
	return NewLRUStore(opts.MaxEntries, opts.TTL)
}

// NormalizeKey trims surrounding whitespace. Case is preserved because URL
// paths and queries are case-sensitive.
func NormalizeKey(url string) string {
	return strings.TrimSpace(url)
}

// MemoryStore is a mutex-guarded map without eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*model.VariantCatalog
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*model.VariantCatalog)}
}

func (s *MemoryStore) Get(url string) (*model.VariantCatalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[NormalizeKey(url)]
	return c, ok
}

func (s *MemoryStore) Put(url string, catalog *model.VariantCatalog) {
	if catalog == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[NormalizeKey(url)] = catalog
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LRUStore evicts the least recently used catalog past MaxEntries and expires
// entries after TTL.
type LRUStore struct {
	lru *expirable.LRU[string, *model.VariantCatalog]
}

// NewLRUStore creates a bounded store. A size of 0 means no entry limit and a ttl of 0 means no expiry.
func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRUStore{lru: expirable.NewLRU[string, *model.VariantCatalog](size, nil, ttl)}
}

func (s *LRUStore) Get(url string) (*model.VariantCatalog, bool) {
	return s.lru.Get(NormalizeKey(url))
}

func (s *LRUStore) Put(url string, catalog *model.VariantCatalog) {
	if catalog == nil {
		return
	}
	s.lru.Add(NormalizeKey(url), catalog)
}

func (s *LRUStore) Len() int {
	return s.lru.Len()
}
