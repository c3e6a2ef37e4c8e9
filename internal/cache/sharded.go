package cache

import "sync"

// DefaultShardCount is the number of independently locked shards.
// It is a power of two so a hash selects a shard with a mask.
const DefaultShardCount = 16

const shardMask = DefaultShardCount - 1

// Hasher computes the shard-selection hash of a key.
type Hasher[K any] func(K) uint64

// IntPairHasher hashes two ints, such as a (mip level, array index) pair.
func IntPairHasher(a, b int) uint64 {
	//nolint:gosec // G115: only the bit pattern matters for hashing
	return Mix64(uint64(uint32(a))<<32 | uint64(uint32(b)))
}

// Mix64 is the splitmix64 finalizer. Keys that differ only in high bits
// still land on different shards.
func Mix64(v uint64) uint64 {
	v ^= v >> 30
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	v *= 0x94d049bb133111eb
	v ^= v >> 31
	return v
}

// ShardedMap is a concurrent map of live entries, split into
// DefaultShardCount shards with one RWMutex each.
//
// Entries are never evicted. They own native state (mapped memory, staging
// buffers) and leave only through DeleteIf or Drain.
type ShardedMap[K comparable, V any] struct {
	shards [DefaultShardCount]shard[K, V]
	hasher Hasher[K]
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewSharded creates an empty map that places keys with hasher.
func NewSharded[K comparable, V any](hasher Hasher[K]) *ShardedMap[K, V] {
	m := &ShardedMap[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i].entries = make(map[K]V)
	}
	return m
}

func (m *ShardedMap[K, V]) shardFor(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&shardMask]
}

// Load returns the entry for key.
func (m *ShardedMap[K, V]) Load(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// GetOrCreate returns the entry for key, running create and storing its
// result when there is none. created reports whether create ran.
//
// create runs under the shard's write lock, so it runs at most once per key
// even under contention, and it blocks every other key of that shard while
// it does. A failed create stores nothing.
func (m *ShardedMap[K, V]) GetOrCreate(key K, create func() (V, error)) (value V, created bool, err error) {
	s := m.shardFor(key)

	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return value, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok = s.entries[key]; ok {
		return value, false, nil
	}
	if value, err = create(); err != nil {
		var zero V
		return zero, false, err
	}
	s.entries[key] = value
	return value, true, nil
}

// DeleteIf removes key only while match accepts the entry it holds, and
// reports whether it did. The check and the removal are atomic.
func (m *ShardedMap[K, V]) DeleteIf(key K, match func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok || !match(v) {
		return false
	}
	delete(s.entries, key)
	return true
}

// Drain empties the map one shard at a time and returns what it held.
func (m *ShardedMap[K, V]) Drain() []V {
	var out []V
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, v := range s.entries {
			out = append(out, v)
		}
		clear(s.entries)
		s.mu.Unlock()
	}
	return out
}

// Len returns the number of entries.
func (m *ShardedMap[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
