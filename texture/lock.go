package texture

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/internal/cache"
)

// LockCacheKey identifies one texture sub-resource.
type LockCacheKey struct {
	MipLevel   int
	ArrayIndex int
}

func hashLockKey(k LockCacheKey) uint64 {
	return cache.IntPairHasher(k.MipLevel, k.ArrayIndex)
}

// LockData is an active CPU mapping of one texture sub-resource.
//
// It stays valid until Unlock is called or its texture is closed. Data
// aliases mapped memory and must not be retained after that.
type LockData struct {
	owner *LockCache
	key   LockCacheKey
	mode  gpucore.MapMode

	Width  uint32
	Height uint32
	Depth  uint32
	Format gputypes.TextureFormat

	Data       []byte
	RowPitch   uint32
	SlicePitch uint32

	disposed atomic.Bool
}

// Key returns the sub-resource this lock maps.
func (l *LockData) Key() LockCacheKey { return l.key }

// Mode returns the map mode the lock was created with.
func (l *LockData) Mode() gpucore.MapMode { return l.mode }

// Unlock releases the mapping. It is the same as calling Unlock on the
// owning cache.
func (l *LockData) Unlock() { l.owner.Unlock(l) }

// IsDisposed reports whether the lock was released.
func (l *LockData) IsDisposed() bool { return l.disposed.Load() }

func (l *LockData) dispose() {
	l.disposed.Store(true)
}

// LockCache tracks the mapped sub-resources of one texture.
//
// Locks are kept in a sharded map keyed by (mip, array), so locking
// different sub-resources from different goroutines rarely contends. The
// native map call runs under the key's shard lock: concurrent first locks
// of the same sub-resource map it once and share the result.
type LockCache struct {
	mapper  Mapper
	texture gpucore.TextureID
	info    Info

	locks atomic.Pointer[cache.ShardedMap[LockCacheKey, *LockData]]
}

// NewLockCache creates a lock cache for a texture described by info.
func NewLockCache(mapper Mapper, tex gpucore.TextureID, info Info) *LockCache {
	c := &LockCache{mapper: mapper, texture: tex, info: info.normalized()}
	c.locks.Store(cache.NewSharded[LockCacheKey, *LockData](hashLockKey))
	return c
}

// Lock maps the sub-resource at (mipLevel, arrayIndex), or returns the
// existing lock if it is already mapped. An existing lock keeps its
// original mode.
func (c *LockCache) Lock(mode gpucore.MapMode, mipLevel, arrayIndex int) (*LockData, error) {
	locks := c.locks.Load()
	if locks == nil {
		return nil, ErrDisposed
	}

	key := LockCacheKey{MipLevel: mipLevel, ArrayIndex: arrayIndex}
	ld, created, err := locks.GetOrCreate(key, func() (*LockData, error) {
		return c.mapLocked(key, mode)
	})
	if err != nil {
		return nil, err
	}

	// Dispose may have swapped the map out while this call held the old
	// one. A lock mapped into it would never be unmapped.
	if c.locks.Load() != locks {
		if created {
			locks.DeleteIf(key, func(v *LockData) bool { return v == ld })
			c.mapper.UnmapSubresource(c.texture, c.subresource(key))
			ld.dispose()
		}
		return nil, ErrDisposed
	}

	if created {
		gpustate.Logger().Debug("texture: sub-resource locked",
			"texture", uint64(c.texture),
			"mip", mipLevel,
			"array", arrayIndex,
			"mode", mode.String())
	}
	return ld, nil
}

// mapLocked issues the native map. It runs under the shard lock of key.
func (c *LockCache) mapLocked(key LockCacheKey, mode gpucore.MapMode) (*LockData, error) {
	sub := c.subresource(key)
	mapped, err := c.mapper.MapSubresource(c.texture, sub, mode)
	if err != nil {
		return nil, fmt.Errorf("texture: map sub-resource %d: %w", sub, err)
	}

	depth := uint32(1)
	if c.info.Dimension == gputypes.TextureDimension3D {
		depth = gpucore.MipSize(c.info.Depth, key.MipLevel)
	}

	return &LockData{
		owner:      c,
		key:        key,
		mode:       mode,
		Width:      gpucore.MipSize(c.info.Width, key.MipLevel),
		Height:     gpucore.MipSize(c.info.Height, key.MipLevel),
		Depth:      depth,
		Format:     c.info.Format,
		Data:       mapped.Data,
		RowPitch:   mapped.RowPitch,
		SlicePitch: mapped.SlicePitch,
	}, nil
}

func (c *LockCache) subresource(key LockCacheKey) int {
	return gpucore.CalcSubresource(key.MipLevel, key.ArrayIndex, c.info.MipLevels)
}

// Unlock removes ld and unmaps its sub-resource. Unlocking a lock that was
// already released does nothing, even when its sub-resource has been
// locked again since.
func (c *LockCache) Unlock(ld *LockData) {
	if ld == nil || ld.IsDisposed() {
		return
	}
	locks := c.locks.Load()
	if locks == nil {
		return
	}

	if !locks.DeleteIf(ld.key, func(v *LockData) bool { return v == ld }) {
		return
	}
	c.mapper.UnmapSubresource(c.texture, c.subresource(ld.key))
	ld.dispose()
}

// HasLocks reports whether any sub-resource is mapped.
func (c *LockCache) HasLocks() bool {
	locks := c.locks.Load()
	return locks != nil && locks.Len() > 0
}

// Dispose discards every lock without unmapping. It is meant for teardown
// of the owning texture, where the native resource goes away as well.
// Dispose may be called more than once.
func (c *LockCache) Dispose() {
	locks := c.locks.Swap(nil)
	if locks == nil {
		return
	}

	remaining := locks.Drain()
	for _, ld := range remaining {
		ld.dispose()
	}
	if len(remaining) > 0 {
		gpustate.Logger().Warn("texture: lock cache disposed with active locks",
			"texture", uint64(c.texture),
			"locks", len(remaining))
	}
}
