// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpustate"
	"github.com/gogpu/gpustate/blit"
	"github.com/gogpu/gpustate/draw"
	"github.com/gogpu/gpustate/gpucore"
	"github.com/gogpu/gpustate/state"
	"github.com/gogpu/gpustate/texture"
)

var (
	_ blit.Device    = (*Device)(nil)
	_ texture.Device = (*Device)(nil)
)

// Config configures a Device. Zero values select defaults.
type Config struct {
	// Label prefixes the debug label of every native object.
	Label string

	// PipelineCacheSize bounds the number of realized render pipelines.
	// Zero uses DefaultPipelineCacheSize.
	PipelineCacheSize int

	// CopyPitchAlignment is the row alignment of texture staging buffers.
	// Zero uses 256, the WebGPU requirement.
	CopyPitchAlignment uint32
}

// Defaults.
const (
	DefaultPipelineCacheSize  = 256
	defaultCopyPitchAlignment = 256
)

func (c Config) withDefaults() Config {
	if c.Label == "" {
		c.Label = "gpustate"
	}
	if c.PipelineCacheSize <= 0 {
		c.PipelineCacheSize = DefaultPipelineCacheSize
	}
	if c.CopyPitchAlignment == 0 {
		c.CopyPitchAlignment = defaultCopyPitchAlignment
	}
	return c
}

// Device implements the state, sampler, shader, texture and draw device
// interfaces on a HAL device and queue.
//
// Rasterizer, blend and depth/stencil states have no native object in
// WebGPU; the device keeps their descriptions and folds them into render
// pipelines when a draw is submitted. Realized pipelines are cached.
//
// Thread Safety:
// Device is safe for concurrent use. A single mutex guards the handle
// tables and command submission.
type Device struct {
	mu     sync.Mutex
	device hal.Device
	queue  hal.Queue
	cfg    Config
	closed bool

	// surfaceFormat is the preferred format reported by a provider.
	surfaceFormat gputypes.TextureFormat

	nextID atomic.Uint64

	rasterStates  map[gpucore.RasterStateID]state.RasterStateDesc
	blendStates   map[gpucore.BlendStateID]state.BlendStateDesc
	depthStencils map[gpucore.DepthStencilStateID]state.DepthStencilStateDesc
	samplers      map[gpucore.SamplerID]hal.Sampler
	modules       map[gpucore.ShaderModuleID]hal.ShaderModule
	buffers       map[gpucore.BufferID]*bufferEntry
	textures      map[gpucore.TextureID]*textureEntry
	views         map[gpucore.TextureViewID]*viewEntry

	pipelines *pipelineCache
	binder    binder
}

type bufferEntry struct {
	raw  hal.Buffer
	size uint64
}

// New creates a device on an open HAL device and queue.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	cfg = cfg.withDefaults()

	d := &Device{
		device:        device,
		queue:         queue,
		cfg:           cfg,
		rasterStates:  make(map[gpucore.RasterStateID]state.RasterStateDesc),
		blendStates:   make(map[gpucore.BlendStateID]state.BlendStateDesc),
		depthStencils: make(map[gpucore.DepthStencilStateID]state.DepthStencilStateDesc),
		samplers:      make(map[gpucore.SamplerID]hal.Sampler),
		modules:       make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		buffers:       make(map[gpucore.BufferID]*bufferEntry),
		textures:      make(map[gpucore.TextureID]*textureEntry),
		views:         make(map[gpucore.TextureViewID]*viewEntry),
	}
	pipelines, err := newPipelineCache(device, cfg.PipelineCacheSize)
	if err != nil {
		return nil, err
	}
	d.pipelines = pipelines
	d.binder = newBinder(device)

	gpustate.Logger().Info("native: device created", "label", cfg.Label)
	return d, nil
}

// NewFromWGPU creates a device on the HAL objects behind a wgpu device.
func NewFromWGPU(device *wgpu.Device, cfg Config) (*Device, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return New(device.HalDevice(), device.HalQueue(), cfg)
}

// NewFromProvider creates a device sharing the GPU of a context provider.
//
// The provider's device must be a *wgpu.Device, or the provider must expose
// HalDevice and HalQueue methods returning HAL types.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}

	var (
		d   *Device
		err error
	)
	if wd, ok := provider.Device().(*wgpu.Device); ok {
		d, err = NewFromWGPU(wd, cfg)
	} else {
		type halProvider interface {
			HalDevice() any
			HalQueue() any
		}
		hp, ok := provider.(halProvider)
		if !ok {
			return nil, ErrNoHAL
		}
		device, _ := hp.HalDevice().(hal.Device)
		queue, _ := hp.HalQueue().(hal.Queue)
		if device == nil || queue == nil {
			return nil, ErrNoHAL
		}
		d, err = New(device, queue, cfg)
	}
	if err != nil {
		return nil, err
	}

	d.surfaceFormat = provider.SurfaceFormat()
	info := provider.AdapterInfo()
	gpustate.Logger().Info("native: attached to provider",
		"adapter", info.Name,
		"surfaceFormat", d.surfaceFormat)
	return d, nil
}

// SurfaceFormat returns the provider's preferred surface format, or
// gputypes.TextureFormatUndefined.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.surfaceFormat }

// HAL returns the underlying HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

func (d *Device) newID() uint64 { return d.nextID.Add(1) }

func (d *Device) label(kind string, id uint64) string {
	return fmt.Sprintf("%s/%s#%d", d.cfg.Label, kind, id)
}

// CreateRasterState implements state.Device.
func (d *Device) CreateRasterState(desc *state.RasterStateDesc) (gpucore.RasterStateID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.RasterStateID(d.newID())
	d.rasterStates[id] = *desc
	return id, nil
}

// DestroyRasterState implements state.Device.
func (d *Device) DestroyRasterState(id gpucore.RasterStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rasterStates, id)
}

// CreateBlendState implements state.Device.
func (d *Device) CreateBlendState(desc *state.BlendStateDesc) (gpucore.BlendStateID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.BlendStateID(d.newID())
	d.blendStates[id] = *desc
	return id, nil
}

// DestroyBlendState implements state.Device.
func (d *Device) DestroyBlendState(id gpucore.BlendStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.blendStates, id)
}

// CreateDepthStencilState implements state.Device.
func (d *Device) CreateDepthStencilState(desc *state.DepthStencilStateDesc) (gpucore.DepthStencilStateID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	id := gpucore.DepthStencilStateID(d.newID())
	d.depthStencils[id] = *desc
	return id, nil
}

// DestroyDepthStencilState implements state.Device.
func (d *Device) DestroyDepthStencilState(id gpucore.DepthStencilStateID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.depthStencils, id)
}

// CreateSampler implements state.SamplerDevice. Border colors are not
// supported by WebGPU and are ignored.
func (d *Device) CreateSampler(desc *state.SamplerStateDesc) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}

	id := gpucore.SamplerID(d.newID())
	raw, err := d.device.CreateSampler(samplerDescriptor(d.label("sampler", uint64(id)), desc))
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler: %w", err)
	}
	d.samplers[id] = raw
	return id, nil
}

// DestroySampler implements state.SamplerDevice.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if raw, ok := d.samplers[id]; ok {
		d.device.DestroySampler(raw)
		delete(d.samplers, id)
	}
}

func samplerDescriptor(label string, desc *state.SamplerStateDesc) *hal.SamplerDescriptor {
	mip := gputypes.FilterModeNearest
	if desc.MipFilter == gputypes.MipmapFilterModeLinear {
		mip = gputypes.FilterModeLinear
	}
	return &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: desc.AddressU,
		AddressModeV: desc.AddressV,
		AddressModeW: desc.AddressW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: mip,
		LodMinClamp:  desc.MinLOD,
		LodMaxClamp:  desc.MaxLOD,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.MaxAnisotropy, 1),
	}
}

// CreateShaderModule implements shader.Device.
func (d *Device) CreateShaderModule(label string, spirv []uint32) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}

	id := gpucore.ShaderModuleID(d.newID())
	raw, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.cfg.Label + "/" + label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", label, err)
	}
	d.modules[id] = raw
	return id, nil
}

// DestroyShaderModule implements shader.Device. Pipelines built from the
// module are released with it.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw, ok := d.modules[id]
	if !ok {
		return
	}
	d.pipelines.purgeModule(id)
	d.device.DestroyShaderModule(raw)
	delete(d.modules, id)
}

// CreateBuffer implements draw.Device.
func (d *Device) CreateBuffer(desc *draw.BufferDesc) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}

	id := gpucore.BufferID(d.newID())
	label := desc.Label
	if label == "" {
		label = d.label("buffer", uint64(id))
	}
	// Buffer sizes must be 4-byte aligned.
	size := (desc.Size + 3) &^ 3
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: bufferUsage(desc.Bind),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	d.buffers[id] = &bufferEntry{raw: raw, size: size}
	return id, nil
}

func bufferUsage(bind gpucore.BindFlags) gputypes.BufferUsage {
	usage := gputypes.BufferUsageCopyDst
	if bind.Has(gpucore.BindVertexBuffer) {
		usage |= gputypes.BufferUsageVertex
	}
	if bind.Has(gpucore.BindIndexBuffer) {
		usage |= gputypes.BufferUsageIndex
	}
	if bind.Has(gpucore.BindConstantBuffer) {
		usage |= gputypes.BufferUsageUniform
	}
	if bind.Has(gpucore.BindUnorderedAccess) || bind.Has(gpucore.BindShaderResource) || bind.Has(gpucore.BindStreamOut) {
		usage |= gputypes.BufferUsageStorage
	}
	return usage
}

// WriteBuffer implements draw.Device.
func (d *Device) WriteBuffer(buf gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("native: write buffer %d: %w", buf, ErrUnknownHandle)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("native: write of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	if err := d.queue.WriteBuffer(b.raw, offset, data); err != nil {
		return fmt.Errorf("native: write buffer %d: %w", buf, err)
	}
	return nil
}

// DestroyBuffer implements draw.Device.
func (d *Device) DestroyBuffer(buf gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buf]; ok {
		d.binder.forget()
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, buf)
	}
}

// Close waits for the GPU and destroys every object the device created.
// The HAL device itself is not destroyed. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.device.WaitIdle()

	d.pipelines.purge()
	d.binder.destroy()
	for id, v := range d.views {
		d.device.DestroyTextureView(v.raw)
		delete(d.views, id)
	}
	for id, t := range d.textures {
		t.releaseStaging(d.device)
		d.device.DestroyTexture(t.raw)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, id)
	}
	for id, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, id)
	}
	for id, m := range d.modules {
		d.device.DestroyShaderModule(m)
		delete(d.modules, id)
	}
	clear(d.rasterStates)
	clear(d.blendStates)
	clear(d.depthStencils)

	gpustate.Logger().Info("native: device closed", "label", d.cfg.Label)
	if err != nil {
		return fmt.Errorf("native: wait idle: %w", err)
	}
	return nil
}
