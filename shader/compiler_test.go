package shader

import (
	"errors"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
)

const mockVertexOnly = `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

const mockVertexOnlyAlt = `
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 0.0, 1.0);
}
`

// mockDevice counts shader module creation and destruction.
type mockDevice struct {
	mu        sync.Mutex
	next      uint64
	created   int
	destroyed []gpucore.ShaderModuleID
	lastWords int
}

func (d *mockDevice) CreateShaderModule(_ string, spirv []uint32) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.created++
	d.lastWords = len(spirv)
	return gpucore.ShaderModuleID(d.next), nil
}

func (d *mockDevice) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = append(d.destroyed, id)
}

func TestNewCompiler_NilDevice(t *testing.T) {
	if _, err := NewCompiler(nil, 0); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewCompiler(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestCompileSPIRV(t *testing.T) {
	words, err := CompileSPIRV(mockVertexOnly)
	if err != nil {
		t.Fatalf("CompileSPIRV() error: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("expected SPIR-V output")
	}
	const spirvMagic = 0x07230203
	if words[0] != spirvMagic {
		t.Errorf("first word = %#x, want SPIR-V magic %#x", words[0], spirvMagic)
	}
}

func TestCompiler_CachesPrograms(t *testing.T) {
	dev := &mockDevice{}
	c, err := NewCompiler(dev, 0)
	if err != nil {
		t.Fatalf("NewCompiler() error: %v", err)
	}

	a, err := c.Compile("quad", mockVertexOnly, VertexEntry, "")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	b, err := c.Compile("quad", mockVertexOnly, VertexEntry, "")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if a != b {
		t.Error("identical compiles should return the cached program")
	}
	if a.Vertex != b.Vertex {
		t.Error("cached programs must share shader pointers")
	}
	if a.Pixel != nil {
		t.Error("vertex-only program should have no pixel stage")
	}
	if a.Vertex.Stage() != state.StageVertex || a.Vertex.Module() != a.Module {
		t.Errorf("unexpected vertex shader: stage=%v module=%d", a.Vertex.Stage(), a.Vertex.Module())
	}
	if dev.created != 1 || dev.lastWords == 0 {
		t.Errorf("expected one module with SPIR-V, created=%d words=%d", dev.created, dev.lastWords)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Cached != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 cached", stats)
	}
}

func TestCompiler_EvictionReleasesModule(t *testing.T) {
	dev := &mockDevice{}
	c, err := NewCompiler(dev, 1)
	if err != nil {
		t.Fatalf("NewCompiler() error: %v", err)
	}

	first, err := c.Compile("a", mockVertexOnly, VertexEntry, "")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	if _, err := c.Compile("b", mockVertexOnlyAlt, VertexEntry, ""); err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	if len(dev.destroyed) != 1 || dev.destroyed[0] != first.Module {
		t.Errorf("expected module %d destroyed on eviction, got %v", first.Module, dev.destroyed)
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Stats().Evictions)
	}
}

func TestCompiler_Errors(t *testing.T) {
	dev := &mockDevice{}
	c, _ := NewCompiler(dev, 4)

	if _, err := c.Compile("empty", "", VertexEntry, ""); !errors.Is(err, ErrEmptySource) {
		t.Errorf("empty source error = %v, want ErrEmptySource", err)
	}
	if _, err := c.Compile("broken", "fn (", VertexEntry, ""); err == nil {
		t.Error("invalid WGSL should fail to compile")
	}
	if dev.created != 0 {
		t.Errorf("failed compiles must not create modules, got %d", dev.created)
	}
}

func TestCompiler_Close(t *testing.T) {
	dev := &mockDevice{}
	c, _ := NewCompiler(dev, 4)

	p, err := c.Compile("quad", mockVertexOnly, VertexEntry, "")
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	c.Close()
	c.Close()

	if len(dev.destroyed) != 1 || dev.destroyed[0] != p.Module {
		t.Errorf("Close should release cached modules, got %v", dev.destroyed)
	}
	if _, err := c.Compile("quad", mockVertexOnly, VertexEntry, ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Compile after Close error = %v, want ErrClosed", err)
	}
}

func TestCompiler_ConcurrentCompileOnce(t *testing.T) {
	dev := &mockDevice{}
	c, _ := NewCompiler(dev, 4)

	var g errgroup.Group
	programs := make([]*Program, 16)
	for i := range programs {
		g.Go(func() error {
			p, err := c.Compile("quad", mockVertexOnly, VertexEntry, "")
			programs[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	for _, p := range programs {
		if p != programs[0] {
			t.Fatal("concurrent compiles should share one program")
		}
	}
	if dev.created != 1 {
		t.Errorf("expected one module, got %d", dev.created)
	}
}

func TestBlitSource(t *testing.T) {
	src := BlitSource()
	if src == "" {
		t.Fatal("blit shader source is empty")
	}
	if _, err := CompileSPIRV(src); err != nil {
		t.Errorf("blit shader does not compile: %v", err)
	}
}
