package shader

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

// DefaultCacheSize is the number of compiled programs a Compiler keeps.
const DefaultCacheSize = 64

// Device creates native shader modules from SPIR-V.
type Device interface {
	CreateShaderModule(label string, spirv []uint32) (gpucore.ShaderModuleID, error)
	DestroyShaderModule(id gpucore.ShaderModuleID)
}

// Program is a compiled WGSL module with its vertex and pixel stages.
//
// The same *Program, and therefore the same *state.Shader values, is
// returned for every compile of identical source and entry points while
// it stays cached. Pipeline state caches compare shaders by pointer, so
// this is what lets them find existing entries.
type Program struct {
	Label  string
	Module gpucore.ShaderModuleID
	Vertex *state.Shader
	// Pixel is nil when the program has no fragment stage.
	Pixel *state.Shader
}

// CompilerStats reports compiler cache activity.
type CompilerStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Cached    int
}

// Compiler compiles WGSL to SPIR-V with naga and caches the resulting
// native modules.
//
// The cache is a bounded LRU; an evicted program's native module is
// destroyed, so size the cache to hold every program that live pipeline
// states still reference. Concurrent compiles of the same program are
// collapsed into one.
//
// Compiler is safe for concurrent use.
type Compiler struct {
	device Device
	cache  *lru.Cache[uint64, *Program]
	group  singleflight.Group

	closeMu sync.RWMutex
	closed  bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCompiler creates a compiler holding at most size programs.
// A size of 0 or less uses DefaultCacheSize.
func NewCompiler(device Device, size int) (*Compiler, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &Compiler{device: device}
	cache, err := lru.NewWithEvict(size, func(_ uint64, p *Program) {
		c.evictions.Add(1)
		c.device.DestroyShaderModule(p.Module)
		gpustate.Logger().Debug("shader: program released", "label", p.Label)
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Compile returns the program for source with the given entry points,
// compiling it on first use. An empty pixelEntry builds a vertex-only
// program.
func (c *Compiler) Compile(label, source, vertexEntry, pixelEntry string) (*Program, error) {
	if source == "" {
		return nil, ErrEmptySource
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}

	key := programKey(source, vertexEntry, pixelEntry)
	if p, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return p, nil
	}

	v, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		// Another caller may have finished while this one waited.
		if p, ok := c.cache.Get(key); ok {
			c.hits.Add(1)
			return p, nil
		}
		c.misses.Add(1)

		p, err := c.build(label, source, vertexEntry, pixelEntry)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Program), nil
}

// CompileBlit compiles the built-in textured quad shader.
func (c *Compiler) CompileBlit() (*Program, error) {
	return c.Compile("blit", blitShaderSource, VertexEntry, PixelEntry)
}

func (c *Compiler) build(label, source, vertexEntry, pixelEntry string) (*Program, error) {
	spirv, err := CompileSPIRV(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %q: %w", label, err)
	}

	module, err := c.device.CreateShaderModule(label, spirv)
	if err != nil {
		return nil, fmt.Errorf("shader: create module %q: %w", label, err)
	}

	p := &Program{
		Label:  label,
		Module: module,
		Vertex: state.NewShader(module, state.StageVertex, vertexEntry, label+"/vs"),
	}
	if pixelEntry != "" {
		p.Pixel = state.NewShader(module, state.StagePixel, pixelEntry, label+"/ps")
	}

	gpustate.Logger().Debug("shader: program compiled",
		"label", label,
		"words", len(spirv))

	return p, nil
}

// Stats returns compiler statistics.
func (c *Compiler) Stats() CompilerStats {
	return CompilerStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Cached:    c.cache.Len(),
	}
}

// Close releases every cached program. Later Compile calls fail with
// ErrClosed.
func (c *Compiler) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cache.Purge()
}

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// programKey hashes the source and entry points with FNV-1a.
func programKey(source, vertexEntry, pixelEntry string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(vertexEntry))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(pixelEntry))
	return h.Sum64()
}
