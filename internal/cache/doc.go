// Package cache provides the concurrent map used for per-resource caches.
//
// # ShardedMap[K, V]
//
// A map split into 16 shards to reduce lock contention. Operations on keys
// that land on different shards never block each other.
//
//	m := cache.NewSharded[key, *entry](hashKey)
//	v, created, err := m.GetOrCreate(k, func() (*entry, error) { ... })
//
// GetOrCreate runs its create callback under the shard's write lock, so a
// key that has never been seen is created exactly once even under
// concurrent first access. Failed creates leave the map unchanged.
//
// ShardedMap never evicts. It is meant for entries that own live resources
// and must be released by their owner.
//
// # Thread Safety
//
// ShardedMap is safe for concurrent use and must not be copied after creation.
package cache
