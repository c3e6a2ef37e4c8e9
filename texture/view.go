package texture

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
)

// TextureViewKey identifies a view of a texture.
// 3D textures use -1 for ArrayIndex and ArrayCount.
type TextureViewKey struct {
	Format     gputypes.TextureFormat
	FirstMip   int
	MipCount   int
	ArrayIndex int
	ArrayCount int
	Cube       bool
}

// ViewDimension returns the view dimension the key describes for a texture
// of dimension dim.
func (k TextureViewKey) ViewDimension(dim gputypes.TextureDimension) gputypes.TextureViewDimension {
	switch {
	case dim == gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	case dim == gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case k.Cube && k.ArrayCount > 6:
		return gputypes.TextureViewDimensionCubeArray
	case k.Cube:
		return gputypes.TextureViewDimensionCube
	case k.ArrayCount > 1:
		return gputypes.TextureViewDimension2DArray
	default:
		return gputypes.TextureViewDimension2D
	}
}

// ViewCache holds the views of one texture. Views are created on first
// request and destroyed together when the texture goes away.
//
// ViewCache is safe for concurrent use.
type ViewCache struct {
	mu        sync.Mutex
	device    ViewDevice
	texture   gpucore.TextureID
	views     map[TextureViewKey]gpucore.TextureViewID
	destroyed bool
}

// NewViewCache creates an empty view cache for tex.
func NewViewCache(device ViewDevice, tex gpucore.TextureID) *ViewCache {
	return &ViewCache{
		device:  device,
		texture: tex,
		views:   make(map[TextureViewKey]gpucore.TextureViewID),
	}
}

// GetOrCreate returns the view for key, creating it on first use.
func (c *ViewCache) GetOrCreate(key TextureViewKey) (gpucore.TextureViewID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return gpucore.InvalidID, ErrDisposed
	}
	if id, ok := c.views[key]; ok {
		return id, nil
	}

	id, err := c.device.CreateTextureView(c.texture, key)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("texture: create view: %w", err)
	}
	c.views[key] = id

	gpustate.Logger().Debug("texture: view created",
		"texture", uint64(c.texture),
		"format", key.Format.String(),
		"mips", key.MipCount,
		"array", key.ArrayCount)

	return id, nil
}

// Len returns the number of cached views.
func (c *ViewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.views)
}

// Destroy destroys every view. Later GetOrCreate calls fail with
// ErrDisposed.
func (c *ViewCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return
	}
	for _, id := range c.views {
		c.device.DestroyTextureView(id)
	}
	clear(c.views)
	c.destroyed = true
}
