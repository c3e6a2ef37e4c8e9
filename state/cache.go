package state

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
)

// Slot table sizing.
const (
	// InitialCacheSize is the number of slots a new or cleared cache has.
	InitialCacheSize = 16

	// CacheGrowth is the number of slots added when the table is full.
	CacheGrowth = 16
)

// PipelineStateCache deduplicates pipeline states and shares their native
// rasterizer, blend and depth/stencil objects.
//
// Every request is compared category by category against the cached
// entries, so a request that is new as a whole still reuses the native
// objects of categories some earlier entry already realized. The first
// matching entry wins for each category.
//
// Thread Safety:
// PipelineStateCache is safe for concurrent use. A single mutex serializes
// all operations; hold time is bounded by a scan of the slot table.
type PipelineStateCache struct {
	mu     sync.Mutex
	device Device

	// slots is dense: entries occupy [0, n) and the rest are nil.
	slots []*PipelineState

	hits         atomic.Uint64
	misses       atomic.Uint64
	rasterMade   atomic.Uint64
	blendMade    atomic.Uint64
	depthMade    atomic.Uint64
	invalidation atomic.Uint64
}

// CacheStats reports pipeline state cache activity.
type CacheStats struct {
	// Hits counts requests answered by an existing entry.
	Hits uint64
	// Misses counts requests that allocated a new slot.
	Misses uint64
	// RasterStates, BlendStates and DepthStencilStates count native
	// objects created.
	RasterStates       uint64
	BlendStates        uint64
	DepthStencilStates uint64
	// Invalidations counts Clear and Destroy calls that released the
	// table.
	Invalidations uint64
}

// NewPipelineStateCache creates an empty cache that realizes native objects
// on device.
func NewPipelineStateCache(device Device) *PipelineStateCache {
	return &PipelineStateCache{
		device: device,
		slots:  make([]*PipelineState, InitialCacheSize),
	}
}

// reuseSet holds native objects borrowed from cached entries.
type reuseSet struct {
	raster       gpucore.RasterStateID
	blend        gpucore.BlendStateID
	depthStencil gpucore.DepthStencilStateID
}

// Cache returns the cached pipeline state matching requested, creating it
// if needed.
//
// If requested is itself an entry of this cache it is returned as-is.
// Otherwise the slot table is scanned: an entry equal in every category is
// returned, and a new entry is built in the first free slot, borrowing
// native objects from the first entry equal in that category and creating
// the rest on the device.
//
// On a device error the slot table is left unchanged and native objects
// created during the call are destroyed.
func (c *PipelineStateCache) Cache(requested *PipelineState) (*PipelineState, error) {
	if requested == nil {
		return nil, ErrNilPipelineState
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil, ErrNilDevice
	}

	// Fast path: re-submission of one of this cache's entries. Native IDs
	// are per-device counters, so only slot identity proves ownership.
	if id := requested.id; id >= 0 && id < len(c.slots) {
		if cached := c.slots[id]; cached == requested && cached.realized() {
			c.hits.Add(1)
			return cached, nil
		}
	}

	var reuse reuseSet
	free := -1

	for i, entry := range c.slots {
		if entry == nil {
			free = i
			break
		}

		changes := CompareState(&requested.desc, &entry.desc)
		if changes&ChangeAllWithoutBlendFlags == ChangeNone {
			c.hits.Add(1)
			return entry, nil
		}

		if !changes.Has(ChangeRasterState) && reuse.raster == gpucore.InvalidID {
			reuse.raster = entry.raster
		}
		if !changes.Has(ChangeBlendState) && reuse.blend == gpucore.InvalidID {
			reuse.blend = entry.blend
		}
		if !changes.Has(ChangeDepthStencil) && reuse.depthStencil == gpucore.InvalidID {
			reuse.depthStencil = entry.depthStencil
		}
	}

	entry := NewPipelineState(requested.desc)
	if err := c.initialize(entry, reuse); err != nil {
		return nil, err
	}

	if free < 0 {
		free = len(c.slots)
		c.slots = append(c.slots, make([]*PipelineState, CacheGrowth)...)
	}
	entry.id = free
	c.slots[free] = entry
	c.misses.Add(1)

	gpustate.Logger().Debug("state: pipeline state cached",
		"slot", free,
		"capacity", len(c.slots),
		"created", entry.owned)

	return entry, nil
}

// initialize assigns native objects to entry, taking them from reuse where
// present and creating the others.
func (c *PipelineStateCache) initialize(entry *PipelineState, reuse reuseSet) error {
	var err error

	entry.raster = reuse.raster
	if entry.raster == gpucore.InvalidID {
		raster := entry.desc.Raster
		if entry.raster, err = c.device.CreateRasterState(&raster); err != nil {
			return fmt.Errorf("state: create raster state: %w", err)
		}
		if entry.raster == gpucore.InvalidID {
			return fmt.Errorf("state: create raster state: %w", ErrInvalidNativeID)
		}
		entry.owned |= ChangeRasterState
		c.rasterMade.Add(1)
	}

	entry.depthStencil = reuse.depthStencil
	if entry.depthStencil == gpucore.InvalidID {
		ds := entry.desc.depthStencilDesc()
		if entry.depthStencil, err = c.device.CreateDepthStencilState(&ds); err == nil && entry.depthStencil == gpucore.InvalidID {
			err = ErrInvalidNativeID
		}
		if err != nil {
			c.release(entry)
			return fmt.Errorf("state: create depth/stencil state: %w", err)
		}
		entry.owned |= ChangeDepthStencil
		c.depthMade.Add(1)
	}

	entry.blend = reuse.blend
	if entry.blend == gpucore.InvalidID {
		blend := entry.desc.Blend
		if entry.blend, err = c.device.CreateBlendState(&blend); err == nil && entry.blend == gpucore.InvalidID {
			err = ErrInvalidNativeID
		}
		if err != nil {
			c.release(entry)
			return fmt.Errorf("state: create blend state: %w", err)
		}
		entry.owned |= ChangeBlendState
		c.blendMade.Add(1)
	}

	return nil
}

// release destroys the native objects entry owns and detaches the rest.
func (c *PipelineStateCache) release(entry *PipelineState) {
	if entry.owned.Has(ChangeRasterState) && entry.raster != gpucore.InvalidID {
		c.device.DestroyRasterState(entry.raster)
	}
	if entry.owned.Has(ChangeBlendState) && entry.blend != gpucore.InvalidID {
		c.device.DestroyBlendState(entry.blend)
	}
	if entry.owned.Has(ChangeDepthStencil) && entry.depthStencil != gpucore.InvalidID {
		c.device.DestroyDepthStencilState(entry.depthStencil)
	}

	entry.raster = gpucore.InvalidID
	entry.blend = gpucore.InvalidID
	entry.depthStencil = gpucore.InvalidID
	entry.owned = ChangeNone
	entry.id = InvalidSlot
}

// invalidate releases every entry and shrinks the table to its initial
// size. Caller must hold c.mu.
func (c *PipelineStateCache) invalidate() {
	for i, entry := range c.slots {
		if entry == nil {
			break
		}
		c.release(entry)
		c.slots[i] = nil
	}

	c.slots = make([]*PipelineState, InitialCacheSize)
	c.invalidation.Add(1)
}

// Clear destroys every cached state and its owned native objects.
//
// States previously returned by Cache are invalidated: their ID becomes
// InvalidSlot and they no longer hold native objects. Passing one back to
// Cache re-creates it.
func (c *PipelineStateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return
	}
	n := c.lenLocked()
	c.invalidate()

	gpustate.Logger().Info("state: pipeline state cache cleared", "entries", n)
}

// Destroy clears the cache and detaches it from its device. Later Cache
// calls fail with ErrNilDevice.
func (c *PipelineStateCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return
	}
	c.invalidate()
	c.device = nil
}

// Len returns the number of cached states.
func (c *PipelineStateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lenLocked()
}

func (c *PipelineStateCache) lenLocked() int {
	n := 0
	for n < len(c.slots) && c.slots[n] != nil {
		n++
	}
	return n
}

// Capacity returns the current size of the slot table.
func (c *PipelineStateCache) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Stats returns cache statistics.
// Values are read atomically and may not be perfectly synchronized.
func (c *PipelineStateCache) Stats() CacheStats {
	return CacheStats{
		Hits:               c.hits.Load(),
		Misses:             c.misses.Load(),
		RasterStates:       c.rasterMade.Load(),
		BlendStates:        c.blendMade.Load(),
		DepthStencilStates: c.depthMade.Load(),
		Invalidations:      c.invalidation.Load(),
	}
}
