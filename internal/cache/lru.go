// Package cache provides a size-bounded LRU cache keyed by content hash.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// DefaultMaxSize is the default memory budget of an LRU (64 MB).
const DefaultMaxSize = 64 * 1024 * 1024

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// evictionSampleSize is the number of tail entries compared on eviction.
const evictionSampleSize = 5

// Key identifies a cached value by the hash of its inputs.
type Key [sha256.Size]byte

// KeyOf hashes parts into a Key. Each part is length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func KeyOf(parts ...[]byte) Key {
	hasher := sha256.New()

	var size [8]byte

	for _, part := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		hasher.Write(size[:])
		hasher.Write(part)
	}

	var key Key

	copy(key[:], hasher.Sum(nil))

	return key
}

// LRU caches values under a memory budget. When full it evicts, among the
// least recently used entries, the one that is largest relative to how
// often it was read.
type LRU[V any] struct {
	mu          sync.Mutex
	entries     map[Key]*lruEntry[V]
	head        *lruEntry[V] // Most recently used.
	tail        *lruEntry[V] // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry[V any] struct {
	key         Key
	value       V
	size        int64
	accessCount int64
	prev        *lruEntry[V]
	next        *lruEntry[V]
}

// evictionCost is higher for small, frequently read entries.
func (e *lruEntry[V]) evictionCost() float64 {
	sizeKB := max(float64(e.size)/bytesPerKB, 1)

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache holding at most maxSize bytes; non-positive
// values select DefaultMaxSize.
func NewLRU[V any](maxSize int64) *LRU[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &LRU[V]{
		entries: make(map[Key]*lruEntry[V]),
		maxSize: maxSize,
	}
}

// Get returns the value stored under key.
func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, accounting size bytes against the budget.
// Values larger than the whole budget are not cached.
func (c *LRU[V]) Put(key Key, value V, size int64) {
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.currentSize += size - entry.size
		entry.value = value
		entry.size = size
		entry.accessCount++
		c.moveToFront(entry)

		for c.currentSize > c.maxSize && c.tail != nil {
			c.evictLowestCost()
		}

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &lruEntry[V]{
		key:         key,
		value:       value,
		size:        size,
		accessCount: 1,
	}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns cache statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruEntry[V])
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[V]) removeFromList(entry *lruEntry[V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}

	entry.prev = nil
	entry.next = nil
}

// evictLowestCost removes the cheapest of the last evictionSampleSize
// entries.
func (c *LRU[V]) evictLowestCost() {
	if c.tail == nil {
		return
	}

	victim := c.tail
	lowestCost := victim.evictionCost()

	entry := c.tail.prev
	for sampled := 1; entry != nil && sampled < evictionSampleSize; sampled++ {
		if cost := entry.evictionCost(); cost < lowestCost {
			lowestCost = cost
			victim = entry
		}

		entry = entry.prev
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
