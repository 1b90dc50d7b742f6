package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// keyedShards is the shard count of a Keyed cache. Power of two.
const keyedShards = 8

// DefaultKeyedCapacity is the per-shard capacity used when none is given.
const DefaultKeyedCapacity = 32

// Keyed is a concurrent LRU cache for long-lived derived GPU objects keyed by
// their source, such as shader modules compiled from WGSL text. Unlike
// Transient it hands out the same value to every caller; entries pushed out
// by the capacity limit are passed to the eviction callback.
type Keyed[K comparable, V any] struct {
	shards   [keyedShards]keyedShard[K, V]
	hash     func(K) uint64
	capacity int
	onEvict  func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type keyedShard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*keyedNode[K, V]
	// head is most recently used, tail least.
	head, tail *keyedNode[K, V]
}

type keyedNode[K comparable, V any] struct {
	key        K
	value      V
	prev, next *keyedNode[K, V]
}

// KeyedStats contains Keyed cache statistics.
type KeyedStats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s KeyedStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// StringHash computes the FNV-1a hash of s.
func StringHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// NewKeyed creates a Keyed cache holding at most capacity entries per shard.
// If capacity <= 0, DefaultKeyedCapacity is used. onEvict may be nil.
func NewKeyed[K comparable, V any](capacity int, hash func(K) uint64, onEvict func(K, V)) *Keyed[K, V] {
	if capacity <= 0 {
		capacity = DefaultKeyedCapacity
	}
	c := &Keyed[K, V]{hash: hash, capacity: capacity, onEvict: onEvict}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*keyedNode[K, V])
	}
	return c
}

func (c *Keyed[K, V]) shard(key K) *keyedShard[K, V] {
	return &c.shards[c.hash(key)&(keyedShards-1)]
}

// Get returns the value cached for key.
func (c *Keyed[K, V]) Get(key K) (V, bool) {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.moveToFront(n)
	c.hits.Add(1)
	return n.value, true
}

// GetOrCreate returns the cached value for key or stores the result of
// create. create runs with the shard locked, so concurrent callers for the
// same key create once. A create error is returned and nothing is cached.
func (c *Keyed[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	s := c.shard(key)
	s.mu.Lock()

	if n, ok := s.entries[key]; ok {
		s.moveToFront(n)
		s.mu.Unlock()
		c.hits.Add(1)
		return n.value, nil
	}
	c.misses.Add(1)

	v, err := create()
	if err != nil {
		s.mu.Unlock()
		var zero V
		return zero, err
	}
	evicted := c.insertLocked(s, key, v)
	s.mu.Unlock()

	c.evict(evicted)
	return v, nil
}

// Delete removes key and passes its value to the eviction callback.
func (c *Keyed[K, V]) Delete(key K) bool {
	s := c.shard(key)
	s.mu.Lock()
	n, ok := s.entries[key]
	if ok {
		s.unlink(n)
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if ok {
		c.evict([]*keyedNode[K, V]{n})
	}
	return ok
}

// Clear removes every entry, passing each to the eviction callback.
func (c *Keyed[K, V]) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		var all []*keyedNode[K, V]
		for n := s.head; n != nil; n = n.next {
			all = append(all, n)
		}
		s.entries = make(map[K]*keyedNode[K, V])
		s.head, s.tail = nil, nil
		s.mu.Unlock()
		c.evict(all)
	}
}

// Len returns the number of cached entries.
func (c *Keyed[K, V]) Len() int {
	total := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Stats returns current statistics.
func (c *Keyed[K, V]) Stats() KeyedStats {
	return KeyedStats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// insertLocked adds key at the front and returns the nodes pushed out by the
// capacity limit. The callback runs after the shard is unlocked.
func (c *Keyed[K, V]) insertLocked(s *keyedShard[K, V], key K, v V) []*keyedNode[K, V] {
	var evicted []*keyedNode[K, V]
	for len(s.entries) >= c.capacity && s.tail != nil {
		old := s.tail
		s.unlink(old)
		delete(s.entries, old.key)
		evicted = append(evicted, old)
	}
	n := &keyedNode[K, V]{key: key, value: v}
	s.pushFront(n)
	s.entries[key] = n
	c.evictions.Add(uint64(len(evicted)))
	return evicted
}

func (c *Keyed[K, V]) evict(nodes []*keyedNode[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range nodes {
		c.onEvict(n.key, n.value)
	}
}

func (s *keyedShard[K, V]) pushFront(n *keyedNode[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *keyedShard[K, V]) moveToFront(n *keyedNode[K, V]) {
	if n == s.head {
		return
	}
	s.unlink(n)
	s.pushFront(n)
}

func (s *keyedShard[K, V]) unlink(n *keyedNode[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
