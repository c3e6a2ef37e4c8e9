package texture

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
)

// Info describes a texture.
type Info struct {
	Label string

	Width  uint32
	Height uint32
	// Depth is the number of slices of a 3D texture. Zero means 1.
	Depth uint32

	// MipLevels is the number of mip levels. Zero means 1.
	MipLevels int
	// ArrayCount is the number of array slices. Zero means 1.
	ArrayCount int

	Format    gputypes.TextureFormat
	Dimension gputypes.TextureDimension
	Usage     gpucore.ResourceUsage
	Binding   gpucore.BindFlags

	// Cube marks a 2D texture array whose slices form cube faces.
	Cube bool
}

// normalized returns info with zero counts replaced by their defaults.
func (i Info) normalized() Info {
	i.Depth = max(i.Depth, 1)
	i.MipLevels = max(i.MipLevels, 1)
	i.ArrayCount = max(i.ArrayCount, 1)
	if i.Dimension == gputypes.TextureDimensionUndefined {
		i.Dimension = gputypes.TextureDimension2D
	}
	if i.Dimension == gputypes.TextureDimension3D {
		i.ArrayCount = 1
		i.Cube = false
	}
	return i
}

// Texture is a GPU texture with its lock cache and view cache.
//
// Both caches are private to the texture and released by Close.
type Texture struct {
	device Device
	id     gpucore.TextureID
	info   Info

	locks *LockCache
	views *ViewCache

	closed atomic.Bool
}

// New creates a texture on device.
func New(device Device, info Info) (*Texture, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, ErrInvalidSize
	}
	info = info.normalized()

	id, err := device.CreateTexture(&info)
	if err != nil {
		return nil, fmt.Errorf("texture: create %q: %w", info.Label, err)
	}

	gpustate.Logger().Debug("texture: created",
		"label", info.Label,
		"width", info.Width,
		"height", info.Height,
		"mips", info.MipLevels,
		"usage", info.Usage.String())

	return &Texture{
		device: device,
		id:     id,
		info:   info,
		locks:  NewLockCache(device, id, info),
		views:  NewViewCache(device, id),
	}, nil
}

// ID returns the native texture.
func (t *Texture) ID() gpucore.TextureID { return t.id }

// Info returns the normalized description.
func (t *Texture) Info() Info { return t.info }

// Lock maps a sub-resource for CPU access.
//
// Only Staging and Dynamic textures can be locked, never a depth/stencil
// texture, and a Dynamic texture only for writing. WriteNoOverwrite is
// treated as Write. The mip level and array index are clamped to the
// texture; a 3D texture always uses array index 0.
func (t *Texture) Lock(mode gpucore.MapMode, mipLevel, arrayIndex int) (*LockData, error) {
	if t.closed.Load() {
		return nil, ErrDisposed
	}
	if t.info.Usage != gpucore.UsageStaging && t.info.Usage != gpucore.UsageDynamic {
		return nil, fmt.Errorf("%w: usage is %s", ErrNotLockable, t.info.Usage)
	}
	if t.info.Binding.Has(gpucore.BindDepthStencil) {
		return nil, ErrDepthStencilLock
	}
	if t.info.Usage == gpucore.UsageDynamic && mode.Reads() {
		return nil, ErrReadDynamic
	}
	if mode == gpucore.MapWriteNoOverwrite {
		mode = gpucore.MapWrite
	}

	mipLevel = min(max(mipLevel, 0), t.info.MipLevels-1)
	if t.info.Dimension == gputypes.TextureDimension3D {
		arrayIndex = 0
	} else {
		arrayIndex = min(max(arrayIndex, 0), t.info.ArrayCount-1)
	}

	return t.locks.Lock(mode, mipLevel, arrayIndex)
}

// Unlock releases a lock obtained from Lock.
func (t *Texture) Unlock(ld *LockData) { t.locks.Unlock(ld) }

// HasLocks reports whether any sub-resource is mapped.
func (t *Texture) HasLocks() bool { return t.locks.HasLocks() }

// DefaultViewKey returns the key of a view covering the whole texture in
// its own format.
func (t *Texture) DefaultViewKey() TextureViewKey {
	return t.ViewKey(gputypes.TextureFormatUndefined, 0, 0, 0, 0)
}

// ViewKey builds a view key for the texture, clamping the ranges to it.
//
// An undefined format means the texture format and a non-positive count
// means "to the end". For 3D textures both array fields are -1. A cube
// texture yields a cube view when the array range is a whole number of
// cube faces.
func (t *Texture) ViewKey(format gputypes.TextureFormat, firstMip, mipCount, arrayIndex, arrayCount int) TextureViewKey {
	if format == gputypes.TextureFormatUndefined {
		format = t.info.Format
	}
	firstMip = min(max(firstMip, 0), t.info.MipLevels-1)
	if mipCount <= 0 || firstMip+mipCount > t.info.MipLevels {
		mipCount = t.info.MipLevels - firstMip
	}

	key := TextureViewKey{Format: format, FirstMip: firstMip, MipCount: mipCount}
	if t.info.Dimension == gputypes.TextureDimension3D {
		key.ArrayIndex, key.ArrayCount = -1, -1
		return key
	}

	arrayIndex = min(max(arrayIndex, 0), t.info.ArrayCount-1)
	if arrayCount <= 0 || arrayIndex+arrayCount > t.info.ArrayCount {
		arrayCount = t.info.ArrayCount - arrayIndex
	}
	key.ArrayIndex, key.ArrayCount = arrayIndex, arrayCount
	key.Cube = t.info.Cube && arrayCount%6 == 0
	return key
}

// View returns the view described by key, creating it on first use.
func (t *Texture) View(key TextureViewKey) (gpucore.TextureViewID, error) {
	if t.closed.Load() {
		return gpucore.InvalidID, ErrDisposed
	}
	return t.views.GetOrCreate(key)
}

// DefaultView returns the view covering the whole texture.
func (t *Texture) DefaultView() (gpucore.TextureViewID, error) {
	return t.View(t.DefaultViewKey())
}

// Close discards locks, destroys every view and then the texture.
// Close may be called more than once.
func (t *Texture) Close() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.locks.Dispose()
	t.views.Destroy()
	t.device.DestroyTexture(t.id)
}
