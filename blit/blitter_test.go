package blit

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/internal/fakegpu"
	"github.com/gogpu/gpustate/state"
)

var mockTarget = draw.Target{View: 500, Width: 200, Height: 100, Format: gputypes.TextureFormatRGBA8Unorm}

func newMockBlitter(t *testing.T) (*TextureBlitter, *fakegpu.Device) {
	t.Helper()
	dev := fakegpu.New()
	b, err := NewTextureBlitter(dev, Options{})
	if err != nil {
		t.Fatalf("NewTextureBlitter() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, dev
}

func project(m f32.Mat4, p f32.Vec2) f32.Vec2 {
	return f32.Vec2{
		m[0]*p[0] + m[1]*p[1] + m[3],
		m[4]*p[0] + m[5]*p[1] + m[7],
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func readFloat(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func TestOrtho(t *testing.T) {
	m := ortho(200, 100)
	tests := []struct {
		in, want f32.Vec2
	}{
		{f32.Vec2{0, 0}, f32.Vec2{-1, 1}},
		{f32.Vec2{200, 100}, f32.Vec2{1, -1}},
		{f32.Vec2{100, 50}, f32.Vec2{0, 0}},
	}
	for _, tt := range tests {
		got := project(m, tt.in)
		if !near(got[0], tt.want[0]) || !near(got[1], tt.want[1]) {
			t.Errorf("project(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeMatrix_ColumnMajor(t *testing.T) {
	var buf [projectionBytes]byte
	encodeMatrix(buf[:], ortho(200, 100))

	// Translation is the fourth column.
	if got := readFloat(buf[:], 12); got != -1 {
		t.Errorf("column 3 row 0 = %v, want -1", got)
	}
	if got := readFloat(buf[:], 13); got != 1 {
		t.Errorf("column 3 row 1 = %v, want 1", got)
	}
	if got := readFloat(buf[:], 0); got != 0.01 {
		t.Errorf("column 0 row 0 = %v, want 0.01", got)
	}
}

func TestQuadLayout(t *testing.T) {
	var buf [quadBytes]byte
	encodeQuad(buf[:], quad(Rect{X: 10, Y: 20, Width: 30, Height: 40}, Rect{X: 0.5, Width: 0.5, Height: 1}, gputypes.Color{R: 1, A: 0.5}))

	// Last vertex is bottom-right.
	base := 3 * vertexFloats
	want := []float32{40, 60, 1, 1, 1, 0, 0, 0.5}
	for i, w := range want {
		if got := readFloat(buf[:], base+i); got != w {
			t.Errorf("vertex 3 float %d = %v, want %v", i, got, w)
		}
	}
	if got := readFloat(buf[:], 2); got != 0.5 {
		t.Errorf("vertex 0 u = %v, want 0.5", got)
	}
}

func TestNewTextureBlitter_NilDevice(t *testing.T) {
	if _, err := NewTextureBlitter(nil, Options{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewTextureBlitter(nil) error = %v, want ErrNilDevice", err)
	}
}

func TestTextureBlitter_LazyInit(t *testing.T) {
	b, dev := newMockBlitter(t)
	if dev.Created(fakegpu.KindBuffer) != 0 {
		t.Fatal("resources created before first use")
	}

	if err := b.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := dev.Created(fakegpu.KindBuffer); got != 3 {
		t.Errorf("buffers created = %d, want 3", got)
	}
	if got := dev.Created(fakegpu.KindShaderModule); got != 1 {
		t.Errorf("shader modules created = %d, want 1", got)
	}
	if b.pipelines.Len() != 1 {
		t.Errorf("pipeline states = %d, want 1", b.pipelines.Len())
	}
}

func TestTextureBlitter_ConcurrentInit(t *testing.T) {
	b, dev := newMockBlitter(t)

	var g errgroup.Group
	for range 8 {
		g.Go(b.Initialize)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := dev.Created(fakegpu.KindBuffer); got != 3 {
		t.Errorf("buffers created = %d, want 3", got)
	}
}

func TestTextureBlitter_InitFailure(t *testing.T) {
	dev := fakegpu.New()
	fail := errors.New("out of memory")
	dev.FailCreate(fakegpu.KindBuffer, fail)

	b, _ := NewTextureBlitter(dev, Options{})
	if err := b.Initialize(); !errors.Is(err, fail) {
		t.Fatalf("Initialize() error = %v, want %v", err, fail)
	}
	if err := b.Blit(mockTarget, Op{View: 1, Dst: Rect{Width: 1, Height: 1}}); !errors.Is(err, fail) {
		t.Errorf("Blit() after failed init error = %v, want %v", err, fail)
	}
	if got := dev.Live(fakegpu.KindShaderModule); got != 0 {
		t.Errorf("%d shader modules leaked", got)
	}
}

func TestTextureBlitter_Blit(t *testing.T) {
	b, dev := newMockBlitter(t)

	op := Op{View: 7, Dst: Rect{X: 10, Y: 10, Width: 50, Height: 20}}
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatalf("Blit() error = %v", err)
	}

	subs := dev.Submissions()
	if len(subs) != 1 {
		t.Fatalf("got %d submissions, want 1", len(subs))
	}
	call := subs[0].Call
	if call.VertexCount != quadVertices || call.ShaderResources.At(0) != 7 {
		t.Errorf("draw call = %+v", call)
	}
	if call.Resources.Topology != gputypes.PrimitiveTopologyTriangleStrip {
		t.Errorf("topology = %v", call.Resources.Topology)
	}

	vb := call.Resources.VertexBuffers.At(0).Buffer
	data := dev.BufferData(vb)
	if got := readFloat(data, 0); got != 10 {
		t.Errorf("first vertex x = %v, want 10", got)
	}
	// Zero color means white.
	if got := readFloat(data, 4); got != 1 {
		t.Errorf("first vertex red = %v, want 1", got)
	}

	proj := dev.BufferData(b.constants)
	if got := readFloat(proj, 0); got != 0.01 {
		t.Errorf("projection[0] = %v, want 0.01", got)
	}
}

func TestTextureBlitter_ReusesDrawCall(t *testing.T) {
	b, dev := newMockBlitter(t)

	op := Op{View: 7, Dst: Rect{Width: 10, Height: 10}}
	for range 2 {
		if err := b.Blit(mockTarget, op); err != nil {
			t.Fatal(err)
		}
	}
	op.Dst.X = 20
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatal(err)
	}

	subs := dev.Submissions()
	if subs[0].Call != subs[1].Call || subs[1].Call != subs[2].Call {
		t.Error("unchanged texture, sampler and blend did not reuse the draw call")
	}
	if b.allocator.Allocated() != 1 {
		t.Errorf("Allocated() = %d, want 1", b.allocator.Allocated())
	}
	// Only the alternating vertex buffer changes between blits.
	if got := subs[1].Resources.Changes; got != draw.ResourceVertexBuffers {
		t.Errorf("second blit resource changes = %v, want VertexBuffers", got)
	}
	if subs[1].Pipeline != state.ChangeNone {
		t.Errorf("second blit pipeline changes = %v, want None", subs[1].Pipeline)
	}

	op.View = 8
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatal(err)
	}
	subs = dev.Submissions()
	if subs[3].Call == subs[2].Call {
		t.Error("new texture reused the previous draw call")
	}
	if !subs[3].Resources.Changes.Has(draw.ResourceShaderResources) {
		t.Errorf("texture swap changes = %v", subs[3].Resources.Changes)
	}
}

func TestTextureBlitter_DoubleBuffering(t *testing.T) {
	b, dev := newMockBlitter(t)

	op := Op{View: 7, Dst: Rect{Width: 10, Height: 10}}
	var buffers []uint64
	for range 3 {
		if err := b.Blit(mockTarget, op); err != nil {
			t.Fatal(err)
		}
		// The draw call is reused, so read its binding right away.
		subs := dev.Submissions()
		call := subs[len(subs)-1].Call
		buffers = append(buffers, uint64(call.Resources.VertexBuffers.At(0).Buffer))
	}
	if buffers[0] == buffers[1] || buffers[0] != buffers[2] {
		t.Errorf("vertex buffers = %v, want alternating", buffers)
	}
}

func TestTextureBlitter_ProjectionOnResize(t *testing.T) {
	b, dev := newMockBlitter(t)

	op := Op{View: 7, Dst: Rect{Width: 10, Height: 10}}
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatal(err)
	}
	bigger := mockTarget
	bigger.Width = 400
	if err := b.Blit(bigger, op); err != nil {
		t.Fatal(err)
	}
	if got := readFloat(dev.BufferData(b.constants), 0); got != 0.005 {
		t.Errorf("projection[0] after resize = %v, want 0.005", got)
	}
}

func TestTextureBlitter_BlendAndSampler(t *testing.T) {
	b, dev := newMockBlitter(t)

	op := Op{View: 7, Dst: Rect{Width: 10, Height: 10}}
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatal(err)
	}
	op.Blend = &state.BlendAdditive
	op.Sampler = &state.PointFiltering
	if err := b.Blit(mockTarget, op); err != nil {
		t.Fatal(err)
	}

	if b.pipelines.Len() != 2 {
		t.Errorf("pipeline states = %d, want 2", b.pipelines.Len())
	}
	if got := dev.Created(fakegpu.KindSampler); got != 2 {
		t.Errorf("samplers created = %d, want 2", got)
	}
	subs := dev.Submissions()
	if !subs[1].Pipeline.Has(state.ChangeBlendState) {
		t.Errorf("blend swap changes = %v", subs[1].Pipeline)
	}
	// Both pipelines share the raster and depth/stencil objects.
	if got := dev.Created(fakegpu.KindRasterState); got != 1 {
		t.Errorf("raster states created = %d, want 1", got)
	}
}

func TestTextureBlitter_Errors(t *testing.T) {
	b, dev := newMockBlitter(t)

	if err := b.Blit(mockTarget, Op{Dst: Rect{Width: 1, Height: 1}}); !errors.Is(err, ErrNoTexture) {
		t.Errorf("Blit() without view error = %v, want ErrNoTexture", err)
	}
	if err := b.Blit(mockTarget, Op{View: 1}); err != nil {
		t.Errorf("Blit() with empty destination error = %v", err)
	}
	if n := len(dev.Submissions()); n != 0 {
		t.Errorf("%d submissions, want 0", n)
	}
}

func TestTextureBlitter_Close(t *testing.T) {
	dev := fakegpu.New()
	b, _ := NewTextureBlitter(dev, Options{})
	if err := b.Blit(mockTarget, Op{View: 7, Dst: Rect{Width: 10, Height: 10}}); err != nil {
		t.Fatal(err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	for _, kind := range []fakegpu.Kind{
		fakegpu.KindBuffer, fakegpu.KindShaderModule, fakegpu.KindSampler,
		fakegpu.KindRasterState, fakegpu.KindBlendState, fakegpu.KindDepthStencil,
	} {
		if n := dev.Live(kind); n != 0 {
			t.Errorf("%d live %s objects after Close", n, kind)
		}
	}
	if err := b.Blit(mockTarget, Op{View: 7, Dst: Rect{Width: 10, Height: 10}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Blit() after Close error = %v, want ErrClosed", err)
	}
}

func TestTextureBlitter_CloseBeforeInit(t *testing.T) {
	dev := fakegpu.New()
	b, _ := NewTextureBlitter(dev, Options{})
	b.Close()
	if err := b.Initialize(); !errors.Is(err, ErrClosed) {
		t.Errorf("Initialize() after Close error = %v, want ErrClosed", err)
	}
	if dev.Created(fakegpu.KindBuffer) != 0 {
		t.Error("Initialize() after Close created resources")
	}
}

func TestTextureBlitter_SharedCaches(t *testing.T) {
	dev := fakegpu.New()
	pipelines := state.NewPipelineStateCache(dev)
	samplers := state.NewSamplerStateFactory()

	b, _ := NewTextureBlitter(dev, Options{Pipelines: pipelines, Samplers: samplers})
	if err := b.Blit(mockTarget, Op{View: 7, Dst: Rect{Width: 10, Height: 10}}); err != nil {
		t.Fatal(err)
	}
	b.Close()

	if pipelines.Len() != 1 || samplers.Len() != 1 {
		t.Errorf("shared caches emptied by Close: %d states, %d samplers", pipelines.Len(), samplers.Len())
	}
}
