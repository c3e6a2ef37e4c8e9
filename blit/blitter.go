package blit

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/binding"
	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/shader"
	"github.com/gogpu/gpustate/state"
)

// Device is everything the blitter needs from the GPU.
type Device interface {
	draw.Device
	state.Device
	state.SamplerDevice
	shader.Device
}

// Options configures a TextureBlitter. Nil fields are created by the
// blitter and released by Close.
type Options struct {
	Pipelines *state.PipelineStateCache
	Samplers  *state.SamplerStateFactory
	Compiler  *shader.Compiler

	// AllocatorSize is the draw call ring size. Zero uses
	// draw.DefaultAllocatorSize.
	AllocatorSize int
}

// Op is one blit.
type Op struct {
	// View is the texture to draw.
	View gpucore.TextureViewID

	// Dst is the destination rectangle in target pixels.
	Dst Rect

	// Src is the source rectangle in normalized texture coordinates.
	// An empty Src draws the whole texture.
	Src Rect

	// Color tints the texture. The zero value is treated as white.
	Color gputypes.Color

	// Sampler selects filtering. Nil uses state.LinearFiltering.
	Sampler *state.SamplerStateDesc

	// Blend selects blending. Nil uses state.BlendModulated.
	Blend *state.BlendStateDesc
}

// TextureBlitter draws textured quads onto render targets.
//
// Resources are created on first use: the blit shader, two vertex buffers
// written alternately so a write never touches the buffer of the draw
// before it, the input layout, the projection constant buffer and the
// default pipeline state.
//
// TextureBlitter is safe for concurrent use; blits are serialized.
type TextureBlitter struct {
	device Device
	opts   Options

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	closed bool

	pipelines *state.PipelineStateCache
	samplers  *state.SamplerStateFactory
	compiler  *shader.Compiler
	renderer  *draw.Renderer
	allocator *draw.Allocator

	program   *shader.Program
	layout    *binding.InputLayout
	vertices  [2]gpucore.BufferID
	bindings  [2]*binding.VertexBufferBindings
	current   int
	constants gpucore.BufferID
	states    map[state.BlendStateDesc]*state.PipelineState

	targetWidth  uint32
	targetHeight uint32

	lastCall *draw.DrawCall
	scratch  [quadBytes]byte
}

// NewTextureBlitter creates a blitter drawing on device. No GPU resources
// are created until the first Blit or Initialize.
func NewTextureBlitter(device Device, opts Options) (*TextureBlitter, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &TextureBlitter{device: device, opts: opts}, nil
}

// Initialize creates the blitter's GPU resources. It runs once; concurrent
// callers wait for the first and all receive its result.
func (b *TextureBlitter) Initialize() error {
	b.initOnce.Do(func() {
		b.initErr = b.initialize()
		if b.initErr != nil {
			b.releaseResources()
		}
	})
	return b.initErr
}

func (b *TextureBlitter) initialize() error {
	var err error

	b.pipelines = b.opts.Pipelines
	if b.pipelines == nil {
		b.pipelines = state.NewPipelineStateCache(b.device)
	}
	b.samplers = b.opts.Samplers
	if b.samplers == nil {
		b.samplers = state.NewSamplerStateFactory()
	}
	b.compiler = b.opts.Compiler
	if b.compiler == nil {
		if b.compiler, err = shader.NewCompiler(b.device, 1); err != nil {
			return fmt.Errorf("blit: %w", err)
		}
	}
	if b.renderer, err = draw.NewRenderer(b.device); err != nil {
		return fmt.Errorf("blit: %w", err)
	}
	b.allocator = draw.NewAllocator(b.opts.AllocatorSize)

	if b.program, err = b.compiler.CompileBlit(); err != nil {
		return fmt.Errorf("blit: compile shader: %w", err)
	}

	b.layout = binding.NewInputLayout("blit", vertexStride,
		gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
	)
	for i := range b.vertices {
		b.vertices[i], err = b.device.CreateBuffer(&draw.BufferDesc{
			Label: fmt.Sprintf("blit vertices %d", i),
			Size:  quadBytes,
			Bind:  gpucore.BindVertexBuffer,
		})
		if err != nil {
			return fmt.Errorf("blit: create vertex buffer: %w", err)
		}
		b.bindings[i] = binding.NewVertexBufferBindings(b.layout,
			binding.VertexBufferBinding{Buffer: b.vertices[i], Stride: vertexStride})
	}

	b.constants, err = b.device.CreateBuffer(&draw.BufferDesc{
		Label: "blit projection",
		Size:  projectionBytes,
		Bind:  gpucore.BindConstantBuffer,
	})
	if err != nil {
		return fmt.Errorf("blit: create constant buffer: %w", err)
	}

	b.states = make(map[state.BlendStateDesc]*state.PipelineState)
	if _, err = b.pipelineState(&state.BlendModulated); err != nil {
		return err
	}

	gpustate.Logger().Info("blit: initialized", "program", b.program.Label)
	return nil
}

// pipelineState returns the cached blit pipeline for blend.
func (b *TextureBlitter) pipelineState(blend *state.BlendStateDesc) (*state.PipelineState, error) {
	requested, ok := b.states[*blend]
	if !ok {
		requested = state.NewPipelineState(state.PipelineStateDesc{
			Topology:     gputypes.PrimitiveTopologyTriangleStrip,
			VertexShader: b.program.Vertex,
			PixelShader:  b.program.Pixel,
			Raster:       state.RasterNoCulling,
			Blend:        *blend,
		})
	}
	cached, err := b.pipelines.Cache(requested)
	if err != nil {
		return nil, fmt.Errorf("blit: pipeline state: %w", err)
	}
	b.states[*blend] = cached
	return cached, nil
}

// Blit draws op onto target.
func (b *TextureBlitter) Blit(target draw.Target, op Op) error {
	if op.View == gpucore.InvalidID {
		return ErrNoTexture
	}
	if op.Dst.IsEmpty() {
		return nil
	}
	if err := b.Initialize(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	if err := b.updateProjection(target); err != nil {
		return err
	}

	call, err := b.drawCall(op)
	if err != nil {
		return err
	}

	src := op.Src
	if src.IsEmpty() {
		src = FullTexture
	}
	color := op.Color
	if color == (gputypes.Color{}) {
		color = gputypes.ColorWhite
	}

	b.current ^= 1
	encodeQuad(b.scratch[:], quad(op.Dst, src, color))
	if err := b.device.WriteBuffer(b.vertices[b.current], 0, b.scratch[:]); err != nil {
		return fmt.Errorf("blit: upload vertices: %w", err)
	}
	call.Resources.VertexBuffers = b.bindings[b.current]

	if err := b.renderer.Draw(target, call); err != nil {
		return fmt.Errorf("blit: %w", err)
	}
	return nil
}

// updateProjection uploads a new projection when the target size changed.
func (b *TextureBlitter) updateProjection(target draw.Target) error {
	if target.Width == b.targetWidth && target.Height == b.targetHeight {
		return nil
	}
	if target.Width == 0 || target.Height == 0 {
		return draw.ErrNoTarget
	}

	var buf [projectionBytes]byte
	encodeMatrix(buf[:], ortho(target.Width, target.Height))
	if err := b.device.WriteBuffer(b.constants, 0, buf[:]); err != nil {
		return fmt.Errorf("blit: upload projection: %w", err)
	}
	b.targetWidth, b.targetHeight = target.Width, target.Height
	return nil
}

// drawCall returns the previous draw call when op binds the same texture,
// sampler and pipeline state, and a fresh one otherwise.
func (b *TextureBlitter) drawCall(op Op) (*draw.DrawCall, error) {
	blend := op.Blend
	if blend == nil {
		blend = &state.BlendModulated
	}
	ps, err := b.pipelineState(blend)
	if err != nil {
		return nil, err
	}

	samplerDesc := op.Sampler
	if samplerDesc == nil {
		samplerDesc = &state.LinearFiltering
	}
	sampler, err := b.samplers.GetSamplerState(b.device, samplerDesc, nil)
	if err != nil {
		return nil, fmt.Errorf("blit: %w", err)
	}

	constants := binding.ConstantBufferBinding{Buffer: b.constants, Size: projectionBytes}

	if last := b.lastCall; last != nil &&
		last.State == ps &&
		last.ShaderResources.At(0) == op.View &&
		last.Samplers.At(0) == sampler &&
		last.ConstantBuffers.At(0) == constants {
		return last, nil
	}

	call := b.allocator.Allocate()
	call.State = ps
	call.Resources.Topology = gputypes.PrimitiveTopologyTriangleStrip
	call.ConstantBuffers.Set(0, constants)
	call.ShaderResources.Set(0, op.View)
	call.Samplers.Set(0, sampler)
	call.VertexCount = quadVertices
	b.lastCall = call
	return call, nil
}

// Close releases the blitter's GPU resources and the caches it created.
// Close is idempotent.
func (b *TextureBlitter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	// Run the once so a concurrent first Blit cannot initialize afterwards.
	b.initOnce.Do(func() { b.initErr = ErrClosed })
	b.releaseResources()
	return nil
}

func (b *TextureBlitter) releaseResources() {
	for i, id := range b.vertices {
		if id != gpucore.InvalidID {
			b.device.DestroyBuffer(id)
			b.vertices[i] = gpucore.InvalidID
		}
	}
	if b.constants != gpucore.InvalidID {
		b.device.DestroyBuffer(b.constants)
		b.constants = gpucore.InvalidID
	}
	b.lastCall = nil
	b.states = nil

	if b.pipelines != nil && b.opts.Pipelines == nil {
		b.pipelines.Destroy()
	}
	if b.samplers != nil && b.opts.Samplers == nil {
		b.samplers.ClearCache()
	}
	if b.compiler != nil && b.opts.Compiler == nil {
		b.compiler.Close()
	}
}
